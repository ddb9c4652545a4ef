package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/quillpost/internal/flagx"
	"github.com/dmitrijs2005/quillpost/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Pointer fields let a
// file override only what it mentions; durations accept "1h" or nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP  *string         `json:"endpoint_addr_http"`
	DatabaseDSN       *string         `json:"database_dsn"`
	SecretKey         *string         `json:"secret_key"`
	SessionTokenTTL   *timex.Duration `json:"session_token_ttl"`
	BcryptCost        *int            `json:"bcrypt_cost"`
	FrontendURL       *string         `json:"frontend_url"`
	S3RootUser        *string         `json:"s3_root_user"`
	S3RootPassword    *string         `json:"s3_root_password"`
	S3Bucket          *string         `json:"s3_bucket"`
	S3Region          *string         `json:"s3_region"`
	S3BaseEndpoint    *string         `json:"s3_base_endpoint"`
	KakaoClientID     *string         `json:"kakao_client_id"`
	KakaoClientSecret *string         `json:"kakao_client_secret"`
	KakaoRedirectURL  *string         `json:"kakao_redirect_url"`
}

// parseJson overlays values from the JSON file named by -c/-config in args.
// Without that flag nothing changes. An unreadable or invalid file panics:
// the server must not start with a half-applied configuration.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.SessionTokenTTL != nil {
		config.SessionTokenTTL = c.SessionTokenTTL.Duration
	}
	if c.BcryptCost != nil {
		config.BcryptCost = *c.BcryptCost
	}
	setString(&config.FrontendURL, c.FrontendURL)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.KakaoClientID, c.KakaoClientID)
	setString(&config.KakaoClientSecret, c.KakaoClientSecret)
	setString(&config.KakaoRedirectURL, c.KakaoRedirectURL)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
