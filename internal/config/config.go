package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"
)

var envBindings = map[string]string{
	"app.env": "APP_ENV",

	"server.port": "PORT",

	"database.driver":      "DATABASE_DRIVER",
	"database.host":        "DATABASE_HOST",
	"database.port":        "DATABASE_PORT",
	"database.user":        "DATABASE_USER",
	"database.password":    "DATABASE_PASSWORD",
	"database.name":        "DATABASE_NAME",
	"database.ssl_mode":    "DATABASE_SSL_MODE",
	"database.sqlite_path": "DATABASE_SQLITE_PATH",

	"redis.host":     "REDIS_HOST",
	"redis.port":     "REDIS_PORT",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",

	"jwt.secret_key":   "JWT_SECRET_KEY",
	"jwt.expiry_hours": "JWT_EXPIRY_HOURS",

	"rewards.signup_bonus":      "REWARDS_SIGNUP_BONUS",
	"rewards.payout_unlock_ads": "REWARDS_PAYOUT_UNLOCK_ADS",
	"rewards.min_withdrawal":    "REWARDS_MIN_WITHDRAWAL",
	"rewards.initial_status":    "REWARDS_INITIAL_STATUS",
	"rewards.daily_reset_cron":  "REWARDS_DAILY_RESET_CRON",
	"rewards.currency":          "REWARDS_CURRENCY",
	"rewards.ad_cache_ttl":      "REWARDS_AD_CACHE_TTL",
	"rewards.click_rate":        "REWARDS_CLICK_RATE",
	"rewards.click_burst":       "REWARDS_CLICK_BURST",

	"payout.debtor_name": "PAYOUT_DEBTOR_NAME",
	"payout.debtor_bic":  "PAYOUT_DEBTOR_BIC",
}

// Init loads .env (if present) and binds the environment overrides.
// A missing config file is not an error.
func Init(file string) error {
	if file == "" {
		file = ".env"
	}
	viper.SetConfigFile(file)
	viper.SetConfigType("env")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}

	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return viper.ReadInConfig()
}
