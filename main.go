package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/lola-testbed/pub/models"
	"golang.org/x/exp/slog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Context struct {
	Debug     bool
	Logger    *slog.Logger
	Dialector gorm.Dialector

	gorm.Config
}

var cli struct {
	Debug     bool   `help:"Enable debug mode."`
	LogSQL    bool   `help:"Log every SQL statement." env:"PUB_LOG_SQL"`
	LogFormat string `help:"Log format." enum:"text,json" default:"text" env:"PUB_LOG_FORMAT"`
	DSN       string `help:"Data source name." default:"${dsn}" env:"PUB_DSN"`

	AutoMigrate          AutoMigrateCmd          `cmd:"" help:"Create or update the database schema."`
	Serve                ServeCmd                `cmd:"" help:"Serve the portability test server."`
	CreateAccount        CreateAccountCmd        `cmd:"" help:"Create a user and their source and destination actors."`
	DeleteAccount        DeleteAccountCmd        `cmd:"" help:"Delete a user and everything they own."`
	CreateToken          CreateTokenCmd          `cmd:"" help:"Issue an access token."`
	RevokeToken          RevokeTokenCmd          `cmd:"" help:"Revoke an access token."`
	RecordMove           RecordMoveCmd           `cmd:"" help:"Record that an actor moved here from another server."`
	FollowRemote         FollowRemoteCmd         `cmd:"" help:"Follow a remote actor."`
	LikeRemote           LikeRemoteCmd           `cmd:"" help:"Like a remote note."`
	FetchActor           FetchActorCmd           `cmd:"" help:"Fetch and display a remote actor."`
	SynchroniseFollowing SynchroniseFollowingCmd `cmd:"" help:"Follow every actor a remote actor follows."`
	ShowActor            ShowActorCmd            `cmd:"" help:"Display an actor as a caller with the given scope would see it."`
	HouseKeeping         HouseKeepingCmd         `cmd:"" help:"Delete expired and revoked tokens."`
}

func main() {
	ctx := kong.Parse(&cli, kong.Vars{
		"dsn":         defaultDSN,
		"portability": models.PortabilityScope,
	})
	level := slog.LevelInfo
	if cli.Debug {
		level = slog.LevelDebug
	}
	opts := slog.HandlerOptions{Level: level}
	var handler slog.Handler = opts.NewTextHandler(os.Stderr)
	if cli.LogFormat == "json" {
		handler = opts.NewJSONHandler(os.Stderr)
	}
	l := slog.New(handler)
	slog.SetDefault(l)

	gormLogLevel := logger.Warn
	if cli.LogSQL {
		gormLogLevel = logger.Info
	}
	err := ctx.Run(&Context{
		Debug:     cli.Debug,
		Logger:    l,
		Dialector: newDialector(cli.DSN),
		Config: gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(gormLogLevel),
		},
	})
	ctx.FatalIfErrorf(err)
}

// open opens the database and applies the driver's connection settings.
func (ctx *Context) open() (*gorm.DB, error) {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := configureDB(db); err != nil {
		return nil, fmt.Errorf("configure database: %w", err)
	}
	return db, nil
}

func withTransaction(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.Transaction(fn)
}
