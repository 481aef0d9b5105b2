package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gogotex/gogotex/backend/userstore/internal/config"
	"github.com/gogotex/gogotex/backend/userstore/internal/database"
	"github.com/gogotex/gogotex/backend/userstore/internal/user"
	"github.com/gogotex/gogotex/backend/userstore/internal/user/service"
	"github.com/gogotex/gogotex/backend/userstore/pkg/logger"
)

// demo walks through the user layer: create with Save and Create, rename and
// save, then the derived helpers, a ranged query and populate.
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	ctx := context.Background()

	// Prefer Mongo when MONGODB_URI is provided; otherwise run against memory.
	var svc *service.Service
	cfg, err := config.LoadConfig()
	switch {
	case errors.Is(err, config.ErrMissingMongoURI):
		logger.Warn("MONGODB_URI not set, using the in-memory store")
		svc = service.NewMemoryService()
	case err != nil:
		logger.Fatalf("failed to load config: %v", err)
	default:
		logger.SetFormat(cfg.Log.Format)
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			logger.Fatalf("%v", err)
		}
		defer func() { _ = client.Disconnect(ctx) }()
		logger.Info("connected to database...")
		svc = service.NewMongoService(client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection))
	}

	kyle := &user.User{FirstName: "Kyle", Age: 27}
	if err := svc.Save(ctx, kyle); err != nil {
		logger.Error(err.Error())
	} else {
		show(kyle)
	}

	joe, err := svc.Create(ctx, user.User{FirstName: "Joe", Age: 23})
	if err != nil {
		logger.Error(err.Error())
	} else {
		show(joe)
	}

	jill, err := svc.Create(ctx, user.User{FirstName: "Jill", Age: 26})
	if err != nil {
		logger.Error(err.Error())
	} else {
		show(jill)
		jill.FirstName = "Anna Maria"
		if err := svc.Save(ctx, jill); err != nil {
			logger.Error(err.Error())
		}
		show(jill)
	}

	// rejected before anything is written
	if _, err := svc.Create(ctx, user.User{FirstName: "Methuselah", Age: 969, Email: "old"}); err != nil {
		logger.Error(err.Error())
	}

	found, err := svc.FindByFirstName(ctx, "kyle")
	if err != nil {
		logger.Error(err.Error())
	} else {
		fmt.Println(found.SayHi())
		fmt.Println(found.NameAndAge())
		if joe != nil {
			found.BestFriend = user.RefTo(joe.ID)
			if err := svc.Save(ctx, found); err != nil {
				logger.Error(err.Error())
			}
		}
	}

	young, err := svc.Query().Where(user.FieldAge).Gt(18).Lt(25).Populate(user.FieldBestFriend).Exec(ctx)
	if err != nil {
		logger.Error(err.Error())
	}
	for _, u := range young {
		fmt.Println(u.NameAndAge())
	}

	withFriend, err := svc.Query().Where(user.FieldFirstName).Equals("Kyle").Populate(user.FieldBestFriend).One(ctx)
	if err != nil {
		logger.Error(err.Error())
	} else if withFriend.BestFriend.Resolved() {
		fmt.Printf("%s's best friend is %s\n", withFriend.FirstName, withFriend.BestFriend.User.NameAndAge())
	}
}

func show(u *user.User) {
	b, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		logger.Error(err.Error())
		return
	}
	fmt.Println(string(b))
}
