package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Twitter  TwitterConfig  `mapstructure:"twitter"`
	Mentions MentionsConfig `mapstructure:"mentions"`
	Autopost AutopostConfig `mapstructure:"autopost"`
	Spam     SpamConfig     `mapstructure:"spam"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Database DatabaseConfig `mapstructure:"database"`
	Agent    AgentConfig    `mapstructure:"agent"`
}

type TwitterConfig struct {
	BearerToken   string `mapstructure:"bearer_token"`
	APIKey        string `mapstructure:"api_key"`
	APISecret     string `mapstructure:"api_secret"`
	AccessToken   string `mapstructure:"access_token"`
	AccessSecret  string `mapstructure:"access_secret"`
	TerseMode     bool   `mapstructure:"terse_mode"`
	MaxReplyChars int    `mapstructure:"max_reply_chars"`
	HardLimit     int    `mapstructure:"hard_limit"`
}

type MentionsConfig struct {
	Enabled            bool `mapstructure:"enabled"`
	CooldownSeconds    int  `mapstructure:"cooldown_seconds"`
	MaxCooldownSeconds int  `mapstructure:"max_cooldown_seconds"`
	MaxResults         int  `mapstructure:"max_results"`
	LatestOnly         bool `mapstructure:"latest_only"`
}

type AutopostConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
	RecentLimit     int    `mapstructure:"recent_limit"`
	EntriesPath     string `mapstructure:"entries_path"`
	ForceOnStart    bool   `mapstructure:"force_on_start"`
}

type SpamConfig struct {
	Disabled bool   `mapstructure:"disabled"`
	Strict   bool   `mapstructure:"strict"`
	MinChars int    `mapstructure:"min_chars"`
	MinWords int    `mapstructure:"min_words"`
	Keywords string `mapstructure:"keywords"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type AgentConfig struct {
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
	StatePath           string `mapstructure:"state_path"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("agent.poll_interval_seconds", 180)
	v.SetDefault("agent.state_path", "twitter_state.json")
	v.SetDefault("twitter.terse_mode", true)
	v.SetDefault("twitter.max_reply_chars", 200)
	v.SetDefault("twitter.hard_limit", 280)
	v.SetDefault("mentions.enabled", true)
	v.SetDefault("mentions.cooldown_seconds", 180)
	v.SetDefault("mentions.max_cooldown_seconds", 900)
	v.SetDefault("mentions.max_results", 5)
	v.SetDefault("mentions.latest_only", false)
	v.SetDefault("autopost.enabled", false)
	v.SetDefault("autopost.interval_seconds", 3600)
	v.SetDefault("autopost.recent_limit", 8)
	v.SetDefault("autopost.force_on_start", false)
	v.SetDefault("autopost.entries_path", "")
	v.SetDefault("spam.disabled", false)
	v.SetDefault("spam.strict", false)
	v.SetDefault("spam.min_chars", 2)
	v.SetDefault("spam.min_words", 1)
	v.SetDefault("spam.keywords", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 300)
	v.SetDefault("openai.temperature", 0.7)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the config file if one is present; pure-env deployments have none.
	// With an explicit path viper surfaces a bare *fs.PathError rather than
	// ConfigFileNotFoundError, so tolerate both.
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			_, notFound := err.(viper.ConfigFileNotFoundError)
			if !notFound && !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Credential environment variables
	if tok := v.GetString("TWITTER_BEARER_TOKEN"); tok != "" {
		config.Twitter.BearerToken = tok
	}
	if key := v.GetString("TWITTER_API_KEY"); key != "" {
		config.Twitter.APIKey = key
	}
	if secret := v.GetString("TWITTER_API_SECRET"); secret != "" {
		config.Twitter.APISecret = secret
	}
	if tok := v.GetString("TWITTER_ACCESS_TOKEN"); tok != "" {
		config.Twitter.AccessToken = tok
	}
	if secret := v.GetString("TWITTER_ACCESS_SECRET"); secret != "" {
		config.Twitter.AccessSecret = secret
	}
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	config.applyFloors()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyFloors clamps tunables that have a hard lower bound.
func (c *Config) applyFloors() {
	if c.Twitter.MaxReplyChars < 80 {
		c.Twitter.MaxReplyChars = 80
	}
	if c.Twitter.HardLimit < 140 {
		c.Twitter.HardLimit = 140
	}
}

// Validate checks that every required Twitter credential is present.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"TWITTER_BEARER_TOKEN", c.Twitter.BearerToken},
		{"TWITTER_API_KEY", c.Twitter.APIKey},
		{"TWITTER_API_SECRET", c.Twitter.APISecret},
		{"TWITTER_ACCESS_TOKEN", c.Twitter.AccessToken},
		{"TWITTER_ACCESS_SECRET", c.Twitter.AccessSecret},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("missing required credential %s", r.name)
		}
	}
	return nil
}

// SpamKeywordList splits the comma-separated keyword option into trimmed,
// lowercased tokens.
func (c *Config) SpamKeywordList() []string {
	if strings.TrimSpace(c.Spam.Keywords) == "" {
		return nil
	}
	parts := strings.Split(c.Spam.Keywords, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if kw := strings.ToLower(strings.TrimSpace(p)); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}
