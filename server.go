package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"yatube/api/handlers"
	"yatube/api/routes"
	"yatube/config"
	"yatube/db"
	"yatube/services"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	err := config.LoadConfig(configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	log.Println("Starting server...")

	if err := db.ConnectDB(); err != nil {
		panic("Failed to connect to the database: " + err.Error())
	}

	cacheTTL := time.Duration(config.AppConfig.Feed.CacheTTLSecs) * time.Second

	// Кэш главной страницы: Redis, если он сконфигурирован и доступен,
	// иначе кэш в памяти процесса
	var homeCache services.PageCache
	if config.AppConfig.Redis.Host != "" {
		if err := services.InitRedis(); err != nil {
			log.Printf("Warning: Redis is not available, using in-memory page cache: %v", err)
		}
	}
	if services.RedisClient != nil {
		homeCache = services.NewRedisPageCache(services.RedisClient, cacheTTL)
	} else {
		homeCache = services.NewMemoryPageCache(cacheTTL)
	}
	handlers.UseHomeCache(homeCache)

	// RabbitMQ для живой ленты; сервер работает и без него
	if config.AppConfig.RabbitMQ.URL != "" {
		if err := services.InitRabbitMQ(config.AppConfig.RabbitMQ.URL); err != nil {
			log.Printf("Warning: RabbitMQ is not available, feed push disabled: %v", err)
		} else {
			if err := services.StartFeedEventConsumer(context.Background(), "feed_push"); err != nil {
				log.Printf("Warning: failed to start feed consumer: %v", err)
			}
			defer services.CloseRabbitMQ()
		}
	}

	router := gin.Default()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	routes.PublicApi(router)

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Backend.Host, config.AppConfig.Backend.Port)
	if err := router.Run(addr); err != nil {
		panic(err)
	}
}
