package config

import (
	"log"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Port    string `mapstructure:"PORT"`
	BaseURL string `mapstructure:"BASE_URL"`

	// GitHub release hosting
	GithubToken string `mapstructure:"GITHUB_TOKEN" validate:"required"`
	GithubOwner string `mapstructure:"GITHUB_OWNER" validate:"required"`
	GithubRepo  string `mapstructure:"GITHUB_REPO" validate:"required"`

	// Link store document
	LinksFile string `mapstructure:"LINKS_FILE"`

	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	LogFile        string `mapstructure:"LOG_FILE"`
}

var AppConfig *Config

func LoadConfig() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// Defaults also register the keys so AutomaticEnv can resolve them
	// without a .env file present.
	viper.SetDefault("PORT", "5000")
	viper.SetDefault("BASE_URL", "")
	viper.SetDefault("GITHUB_TOKEN", "")
	viper.SetDefault("GITHUB_OWNER", "")
	viper.SetDefault("GITHUB_REPO", "")
	viper.SetDefault("LINKS_FILE", "links.json")
	viper.SetDefault("ALLOWED_ORIGINS", "")
	viper.SetDefault("LOG_FILE", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}

	if err := Validate(AppConfig); err != nil {
		log.Println("ERROR: Missing required environment variables:")
		for _, fe := range err.(validator.ValidationErrors) {
			log.Printf("- %s", fe.Field())
		}
		log.Fatal("Please set these in your environment or .env file")
	}
}

// Validate checks the config against its validate tags. Field names in the
// returned errors are the environment variable names.
func Validate(cfg *Config) error {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("mapstructure")
	})
	return v.Struct(cfg)
}
