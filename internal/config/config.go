package config

import (
	"fmt"
	"strings"

	"github.com/F3Joule/subsocial-v2/internal/scoring"
	"github.com/F3Joule/subsocial-v2/internal/social"
	"github.com/F3Joule/subsocial-v2/internal/validation"
	"github.com/spf13/viper"
)

const (
	envPrefix              = "SUBSOCIAL"
	defaultDatabasePath    = "subsocial.db"
	defaultLogLevel        = "info"
	defaultLogEncoding     = "json"
	defaultTokenIssuer     = "subsocial"
	defaultTokenTTLMinutes = 60
)

// AppConfig captures runtime configuration for the subsocial command.
type AppConfig struct {
	LogLevel        string
	LogEncoding     string
	DatabasePath    string
	SigningSecret   string
	TokenIssuer     string
	TokenTTLMinutes int
	RequireTokens   bool
	MetricsTextfile string
	Limits          validation.Limits
	MaxCommentDepth int
	Weights         scoring.Weights
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.encoding", defaultLogEncoding)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("auth.issuer", defaultTokenIssuer)
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("auth.require_tokens", true)
	configViper.SetDefault("metrics.textfile", "")

	limits := validation.DefaultLimits()
	configViper.SetDefault("limits.handle_min", limits.HandleMinLength)
	configViper.SetDefault("limits.handle_max", limits.HandleMaxLength)
	configViper.SetDefault("limits.username_min", limits.UsernameMinLength)
	configViper.SetDefault("limits.username_max", limits.UsernameMaxLength)
	configViper.SetDefault("limits.content_length", limits.ContentLength)
	configViper.SetDefault("limits.strict_content", false)
	configViper.SetDefault("limits.max_comment_depth", social.DefaultMaxCommentDepth)

	weights := scoring.DefaultWeights()
	configViper.SetDefault("weights.follow_space", weights.FollowSpace)
	configViper.SetDefault("weights.follow_account", weights.FollowAccount)
	configViper.SetDefault("weights.upvote_post", weights.UpvotePost)
	configViper.SetDefault("weights.downvote_post", weights.DownvotePost)
	configViper.SetDefault("weights.share_post", weights.SharePost)
	configViper.SetDefault("weights.create_comment", weights.CreateComment)
	configViper.SetDefault("weights.upvote_comment", weights.UpvoteComment)
	configViper.SetDefault("weights.downvote_comment", weights.DownvoteComment)
	configViper.SetDefault("weights.share_comment", weights.ShareComment)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		LogLevel:        configViper.GetString("log.level"),
		LogEncoding:     configViper.GetString("log.encoding"),
		DatabasePath:    configViper.GetString("database.path"),
		SigningSecret:   configViper.GetString("auth.signing_secret"),
		TokenIssuer:     configViper.GetString("auth.issuer"),
		TokenTTLMinutes: configViper.GetInt("auth.token_ttl_minutes"),
		RequireTokens:   configViper.GetBool("auth.require_tokens"),
		MetricsTextfile: configViper.GetString("metrics.textfile"),
		Limits: validation.Limits{
			HandleMinLength:   configViper.GetInt("limits.handle_min"),
			HandleMaxLength:   configViper.GetInt("limits.handle_max"),
			UsernameMinLength: configViper.GetInt("limits.username_min"),
			UsernameMaxLength: configViper.GetInt("limits.username_max"),
			ContentLength:     configViper.GetInt("limits.content_length"),
			StrictContent:     configViper.GetBool("limits.strict_content"),
		},
		MaxCommentDepth: configViper.GetInt("limits.max_comment_depth"),
		Weights: scoring.Weights{
			FollowSpace:     int16(configViper.GetInt("weights.follow_space")),
			FollowAccount:   int16(configViper.GetInt("weights.follow_account")),
			UpvotePost:      int16(configViper.GetInt("weights.upvote_post")),
			DownvotePost:    int16(configViper.GetInt("weights.downvote_post")),
			SharePost:       int16(configViper.GetInt("weights.share_post")),
			CreateComment:   int16(configViper.GetInt("weights.create_comment")),
			UpvoteComment:   int16(configViper.GetInt("weights.upvote_comment")),
			DownvoteComment: int16(configViper.GetInt("weights.downvote_comment")),
			ShareComment:    int16(configViper.GetInt("weights.share_comment")),
		},
	}

	if err := cfg.validate(configViper); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// LedgerConfig returns the social ledger configuration described by c.
func (c AppConfig) LedgerConfig() social.Config {
	return social.Config{
		Limits:          c.Limits,
		Weights:         c.Weights,
		MaxCommentDepth: c.MaxCommentDepth,
	}
}

// SigningKey returns the actor token secret, failing when none is configured.
func (c AppConfig) SigningKey() ([]byte, error) {
	secret := strings.TrimSpace(c.SigningSecret)
	if secret == "" {
		return nil, fmt.Errorf("auth.signing_secret is required")
	}
	return []byte(secret), nil
}

func (c AppConfig) validate(configViper *viper.Viper) error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.TokenTTLMinutes <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	switch c.LogEncoding {
	case "json", "console":
	default:
		return fmt.Errorf("log.encoding must be json or console")
	}
	if c.Limits.HandleMinLength <= 0 || c.Limits.HandleMinLength > c.Limits.HandleMaxLength {
		return fmt.Errorf("limits.handle_min must be positive and not exceed limits.handle_max")
	}
	if c.Limits.UsernameMinLength <= 0 || c.Limits.UsernameMinLength > c.Limits.UsernameMaxLength {
		return fmt.Errorf("limits.username_min must be positive and not exceed limits.username_max")
	}
	if c.Limits.ContentLength <= 0 {
		return fmt.Errorf("limits.content_length must be positive")
	}
	if c.MaxCommentDepth <= 0 {
		return fmt.Errorf("limits.max_comment_depth must be positive")
	}
	for _, key := range weightKeys {
		value := configViper.GetInt(key)
		if value < -32768 || value > 32767 {
			return fmt.Errorf("%s must fit in 16 bits", key)
		}
	}
	return nil
}

var weightKeys = []string{
	"weights.follow_space",
	"weights.follow_account",
	"weights.upvote_post",
	"weights.downvote_post",
	"weights.share_post",
	"weights.create_comment",
	"weights.upvote_comment",
	"weights.downvote_comment",
	"weights.share_comment",
}
