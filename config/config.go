// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}
	validDBTypes   = []string{"sqlite", "postgres"}
)

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.domain", "host_domain")
	v.BindEnv("host.cors", "host_cors")

	v.BindEnv("db.type", "db_type")
	v.BindEnv("db.dsn", "db_dsn")

	v.BindEnv("aws.access_key", "aws_access_key")
	v.BindEnv("aws.secret_access_key", "aws_secret_access_key")
	v.BindEnv("aws.region", "aws_region")
	v.BindEnv("aws.bucket", "aws_bucket")
	v.BindEnv("aws.endpoint", "aws_endpoint")

	v.BindEnv("paste.min_document_size", "paste_min_document_size")
	v.BindEnv("paste.max_document_size", "paste_max_document_size")
	v.BindEnv("paste.min_name_length", "paste_min_name_length")
	v.BindEnv("paste.max_name_length", "paste_max_name_length")
	v.BindEnv("paste.min_document_count", "paste_min_document_count")
	v.BindEnv("paste.max_document_count", "paste_max_document_count")
	v.BindEnv("paste.min_total_size", "paste_min_total_size")
	v.BindEnv("paste.max_total_size", "paste_max_total_size")
	v.BindEnv("paste.default_expiry_hours", "paste_default_expiry_hours")
	v.BindEnv("paste.max_expiry_hours", "paste_max_expiry_hours")

	v.BindEnv("cleanup.interval_minutes", "cleanup_interval_minutes")

	v.BindEnv("security.rate_limit", "security_rate_limit")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")

	v.SetDefault("db.type", "sqlite")
	v.SetDefault("db.dsn", "database.db")

	v.SetDefault("paste.min_document_size", 1)
	v.SetDefault("paste.max_document_size", 2<<20)
	v.SetDefault("paste.min_name_length", 1)
	v.SetDefault("paste.max_name_length", 50)
	v.SetDefault("paste.min_document_count", 1)
	v.SetDefault("paste.max_document_count", 10)
	v.SetDefault("paste.min_total_size", 1)
	v.SetDefault("paste.max_total_size", 10<<20)

	// 0 means pastes never expire unless the client asks for it
	v.SetDefault("paste.default_expiry_hours", 0)
	v.SetDefault("paste.max_expiry_hours", 24*30)

	v.SetDefault("cleanup.interval_minutes", 50)

	v.SetDefault("security.rate_limit", 10)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return errors.New("config.toml file is missing")
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if !slices.Contains(validDBTypes, v.GetString("db.type")) {
		return errors.New("invalid db type provided")
	}

	if v.GetString("db.dsn") == "" {
		return errors.New("db dsn can't be empty")
	}

	if v.GetString("aws.access_key") == "" {
		return errors.New("aws access key can't be empty")
	}
	if v.GetString("aws.secret_access_key") == "" {
		return errors.New("aws secret access key can't be empty")
	}
	if v.GetString("aws.bucket") == "" {
		return errors.New("aws bucket can't be empty")
	}

	if v.GetInt64("paste.min_document_size") < 1 {
		return errors.New("paste.min_document_size must be bigger than 0")
	}

	if v.GetInt64("paste.max_document_size") < v.GetInt64("paste.min_document_size") {
		return errors.New("paste.max_document_size can't be smaller than paste.min_document_size")
	}

	if v.GetInt("paste.min_name_length") < 1 {
		return errors.New("paste.min_name_length must be bigger than 0")
	}

	if v.GetInt("paste.max_name_length") < v.GetInt("paste.min_name_length") {
		return errors.New("paste.max_name_length can't be smaller than paste.min_name_length")
	}

	if v.GetInt64("paste.min_document_count") < 1 {
		return errors.New("paste.min_document_count must be bigger than 0")
	}

	if v.GetInt64("paste.max_document_count") < v.GetInt64("paste.min_document_count") {
		return errors.New("paste.max_document_count can't be smaller than paste.min_document_count")
	}

	if v.GetInt64("paste.max_total_size") < v.GetInt64("paste.min_total_size") {
		return errors.New("paste.max_total_size can't be smaller than paste.min_total_size")
	}

	if v.GetInt("cleanup.interval_minutes") <= 0 {
		return errors.New("cleanup.interval_minutes must be bigger than 0")
	}

	return nil
}
