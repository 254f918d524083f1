package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/F3Joule/subsocial-v2/internal/config"
	"github.com/F3Joule/subsocial-v2/internal/database"
	"github.com/F3Joule/subsocial-v2/internal/social"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type accountView struct {
	Account          social.SocialAccount         `yaml:"account"`
	ProfileHistory   []social.ProfileHistoryEntry `yaml:"profile_history,omitempty"`
	Followers        []social.AccountID           `yaml:"followers,omitempty"`
	FollowedAccounts []social.AccountID           `yaml:"followed_accounts,omitempty"`
	FollowedSpaces   []social.SpaceID             `yaml:"followed_spaces,omitempty"`
	OwnedSpaces      []social.SpaceID             `yaml:"owned_spaces,omitempty"`
}

type spaceView struct {
	Space     social.Space       `yaml:"space"`
	Followers []social.AccountID `yaml:"followers,omitempty"`
	Posts     []social.PostID    `yaml:"posts,omitempty"`
}

type postView struct {
	Kind      string          `yaml:"kind"`
	Post      social.Post     `yaml:"post"`
	Replies   []social.PostID `yaml:"replies,omitempty"`
	Shares    []social.PostID `yaml:"shares,omitempty"`
	Reactions []reactionView  `yaml:"reactions,omitempty"`
}

type reactionView struct {
	ID    social.ReactionID `yaml:"id"`
	Owner social.AccountID  `yaml:"owner"`
	Kind  string            `yaml:"kind"`
}

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "inspect <account|space|post> <id>",
		Short:     "Print a stored account, space or post as YAML",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"account", "space", "post"},
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return runInspect(cmd.Context(), appConfig, logger, args[0], args[1], cmd.OutOrStdout())
		},
	}
}

func runInspect(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger, kind, rawID string, out io.Writer) error {
	ledger, closeDB, err := openLedger(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	view, err := buildView(ledger, kind, rawID)
	if err != nil {
		return err
	}

	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(2)
	if err := encoder.Encode(view); err != nil {
		return err
	}
	return encoder.Close()
}

func buildView(ledger *social.Ledger, kind, rawID string) (any, error) {
	switch kind {
	case "account":
		id := social.AccountID(rawID)
		account, ok := ledger.SocialAccount(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", social.ErrSocialAccountNotFound, rawID)
		}
		return accountView{
			Account:          account,
			ProfileHistory:   ledger.ProfileHistory(id),
			Followers:        ledger.AccountFollowers(id),
			FollowedAccounts: ledger.AccountsFollowedBy(id),
			FollowedSpaces:   ledger.SpacesFollowedBy(id),
			OwnedSpaces:      ledger.SpaceIDsByOwner(id),
		}, nil

	case "space":
		id, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("space id: %w", err)
		}
		space, ok := ledger.Space(social.SpaceID(id))
		if !ok {
			return nil, fmt.Errorf("%w: %d", social.ErrSpaceNotFound, id)
		}
		return spaceView{
			Space:     space,
			Followers: ledger.SpaceFollowers(space.ID),
			Posts:     ledger.PostIDsBySpace(space.ID),
		}, nil

	case "post":
		id, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("post id: %w", err)
		}
		post, ok := ledger.Post(social.PostID(id))
		if !ok {
			return nil, fmt.Errorf("%w: %d", social.ErrPostNotFound, id)
		}
		view := postView{
			Kind:    social.ExtensionName(post.Extension),
			Post:    post,
			Replies: ledger.ReplyIDs(post.ID),
			Shares:  ledger.SharedPostIDs(post.ID),
		}
		for _, reactionID := range ledger.ReactionIDsByPost(post.ID) {
			reaction, ok := ledger.Reaction(reactionID)
			if !ok {
				continue
			}
			view.Reactions = append(view.Reactions, reactionView{ID: reaction.ID, Owner: reaction.Owner(), Kind: reaction.Kind.String()})
		}
		return view, nil

	default:
		return nil, fmt.Errorf("unknown entity %q: expected account, space or post", kind)
	}
}

func openLedger(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger) (*social.Ledger, func(), error) {
	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() { _ = sqlDB.Close() }

	store, err := database.NewSnapshotStore(database.StoreConfig{Database: db, Logger: logger})
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	ledger, err := store.LoadLedger(ctx, appConfig.LedgerConfig())
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return ledger, closeDB, nil
}
