package main

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/localstore"
	"taskboard/internal/mockapi"
)

func main() {
	_ = godotenv.Load()

	debug := false
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		debug = true
		log.SetLevel(log.DebugLevel)
	}

	ls, err := newLocalStore()
	if err != nil {
		log.Fatalf("localstore: %v", err)
	}

	logger := log.New()
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	var opts []mockapi.Option
	if os.Getenv("MOCK_LATENCY") == "0" {
		opts = append(opts, mockapi.WithoutLatency())
	}
	srv := mockapi.New(ls, logger, opts...)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	mockapi.Register(e, srv)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("LISTEN_ADDR"); ok {
		listenAddr = val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

// newLocalStore picks the persistence backend: redis when
// REDIS_CONNECTION_STRING is set, otherwise a JSON file under STORE_PATH or
// the user config directory.
func newLocalStore() (localstore.Store, error) {
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			// Azure-style comma form: host:port,password=...,ssl=true
			parts := strings.Split(redisConn, ",")
			redisOpts = &redis.Options{Addr: parts[0]}
			for _, p := range parts[1:] {
				kv := strings.SplitN(p, "=", 2)
				if len(kv) != 2 {
					continue
				}
				switch strings.ToLower(kv[0]) {
				case "password":
					redisOpts.Password = kv[1]
				case "ssl":
					if strings.ToLower(kv[1]) == "true" {
						redisOpts.TLSConfig = &tls.Config{}
					}
				}
			}
		}
		return localstore.NewRedisStore(redis.NewClient(redisOpts), ""), nil
	}

	path := os.Getenv("STORE_PATH")
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = "."
		}
		path = filepath.Join(dir, "taskboard", "state.json")
	}
	return localstore.NewFileStore(path)
}
