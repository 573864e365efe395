package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	DB      DBConfig    `mapstructure:"db"`
	JWT     JWTConfig   `mapstructure:"jwt"`
	AppHost string      `mapstructure:"host"`
	Share   SharePolicy `mapstructure:"share"`
}

type DBConfig struct {
	Source string `mapstructure:"source" validate:"required"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret" validate:"required"`
}

// ExpireRule is the expiration-date policy for one class of shares.
type ExpireRule struct {
	// DefaultEnabled applies Days as a default when a new share carries no
	// expiration date.
	DefaultEnabled bool `mapstructure:"default_enabled"`
	// Enforced requires an expiration date and caps it at today + Days.
	Enforced bool `mapstructure:"enforced"`
	Days     int  `mapstructure:"days" validate:"gt=0"`
}

// SharePolicy is the full set of sharing tunables, loaded once per operation
// so validation logic never talks to the config store directly.
type SharePolicy struct {
	Enabled bool `mapstructure:"enabled"`
	// ExcludedGroups lists groups whose members may not share at all.
	ExcludedGroups []string `mapstructure:"excluded_groups"`

	AllowLinks          bool     `mapstructure:"allow_links"`
	AllowLinksExcluded  []string `mapstructure:"allow_links_excluded_groups"`
	AllowPublicUpload   bool     `mapstructure:"allow_public_upload"`
	EnforceLinkPassword bool     `mapstructure:"enforce_link_password"`
	// EnforcePasswordExcluded carves groups out of EnforceLinkPassword.
	EnforcePasswordExcluded []string `mapstructure:"enforce_link_password_excluded_groups"`

	AllowGroupSharing bool `mapstructure:"allow_group_sharing"`
	// GroupMembersOnly restricts sharing to recipients sharing a group with
	// the initiator, minus GroupMembersOnlyExcluded.
	GroupMembersOnly         bool     `mapstructure:"only_share_with_group_members"`
	GroupMembersOnlyExcluded []string `mapstructure:"only_share_with_group_members_excluded_groups"`

	InternalExpire ExpireRule `mapstructure:"internal_expire"`
	LinkExpire     ExpireRule `mapstructure:"link_expire"`
	RemoteExpire   ExpireRule `mapstructure:"remote_expire"`

	TokenLength int    `mapstructure:"token_length" validate:"gte=8,lte=64"`
	ShareFolder string `mapstructure:"share_folder"`
}

// DefaultSharePolicy mirrors the upstream defaults: sharing on, links on,
// seven-day expiration windows that are neither defaulted nor enforced.
func DefaultSharePolicy() SharePolicy {
	return SharePolicy{
		Enabled:           true,
		AllowLinks:        true,
		AllowPublicUpload: true,
		AllowGroupSharing: true,
		InternalExpire:    ExpireRule{Days: 7},
		LinkExpire:        ExpireRule{Days: 7},
		RemoteExpire:      ExpireRule{Days: 7},
		TokenLength:       15,
		ShareFolder:       "/",
	}
}

func Load() (*Config, error) {
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/configs")
	viper.SetConfigName("settings")
	viper.SetConfigType("yml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setPolicyDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setPolicyDefaults() {
	def := DefaultSharePolicy()
	viper.SetDefault("share.enabled", def.Enabled)
	viper.SetDefault("share.allow_links", def.AllowLinks)
	viper.SetDefault("share.allow_public_upload", def.AllowPublicUpload)
	viper.SetDefault("share.allow_group_sharing", def.AllowGroupSharing)
	viper.SetDefault("share.internal_expire.days", def.InternalExpire.Days)
	viper.SetDefault("share.link_expire.days", def.LinkExpire.Days)
	viper.SetDefault("share.remote_expire.days", def.RemoteExpire.Days)
	viper.SetDefault("share.token_length", def.TokenLength)
	viper.SetDefault("share.share_folder", def.ShareFolder)
}
