package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppPort         string
	Debug           bool
	DBDSN           string
	JWTSecret       string
	JWTExpiresMin   int
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CORSOrigins     string
	VerifyCodeTTL   time.Duration
	UploadDir       string
	AppBaseURL      string
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string
}

func Load() Config {
	expires, _ := strconv.Atoi(get("JWT_EXPIRES_MIN", "10080"))
	redisDB, _ := strconv.Atoi(get("REDIS_DB", "0"))
	verifyTTL, _ := strconv.Atoi(get("VERIFY_CODE_TTL_MIN", "60"))
	return Config{
		AppPort:         get("APP_PORT", "8080"),
		Debug:           get("APP_DEBUG", "") == "true",
		DBDSN:           must("DB_DSN"),
		JWTSecret:       must("JWT_SECRET"),
		JWTExpiresMin:   expires,
		RedisAddr:       get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   get("REDIS_PASSWORD", ""),
		RedisDB:         redisDB,
		CORSOrigins:     get("CORS_ORIGINS", "http://127.0.0.1:3000, http://localhost:3000"),
		VerifyCodeTTL:   time.Duration(verifyTTL) * time.Minute,
		UploadDir:       get("UPLOAD_DIR", "./uploads"),
		AppBaseURL:      get("APP_BASE_URL", ""),
		GoogleClientID:  get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:    get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect:  get("GOOGLE_REDIRECT_URL", ""),
		FrontendBaseURL: get("FRONTEND_BASE_URL", "http://localhost:3000"),
	}
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
