// Code generated by Wire. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package main

import (
	"github.com/0xTanzim/contentchat/internal/bootstrap"
	"github.com/0xTanzim/contentchat/internal/domain/chat"
	"github.com/0xTanzim/contentchat/internal/domain/history"
	"github.com/0xTanzim/contentchat/internal/domain/summarize"
	"github.com/0xTanzim/contentchat/internal/infra/config"
	"github.com/0xTanzim/contentchat/internal/interface/http"
	"github.com/0xTanzim/contentchat/pkg/logger"
)

// Injectors from wire.go:

func initializeApp() (*bootstrap.App, error) {
	configConfig, err := config.Load()
	if err != nil {
		return nil, err
	}
	slogLogger := logger.New()
	summarizeConfig := provideSummarizeConfig(configConfig)
	client, err := provideChatGPTClient(configConfig, slogLogger)
	if err != nil {
		return nil, err
	}
	cache := provideSummaryCache(configConfig, slogLogger)
	service := summarize.NewService(summarizeConfig, client, cache, slogLogger)
	chatConfig := provideChatConfig(configConfig)
	controller := chat.NewController(chatConfig, client, slogLogger)
	historyConfig := provideHistoryConfig(configConfig)
	repository := provideHistoryRepository(configConfig, slogLogger)
	blobStore := provideLibraryStore(configConfig, slogLogger)
	historyService := history.NewService(historyConfig, repository, blobStore, slogLogger)
	handler := http.NewHandler(service, controller, historyService, client, slogLogger)
	server := http.NewRouter(configConfig, handler)
	app := bootstrap.NewApp(configConfig, slogLogger, server)
	return app, nil
}
