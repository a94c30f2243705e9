//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/0xTanzim/contentchat/internal/bootstrap"
	"github.com/0xTanzim/contentchat/internal/domain/chat"
	"github.com/0xTanzim/contentchat/internal/domain/engine"
	"github.com/0xTanzim/contentchat/internal/domain/history"
	"github.com/0xTanzim/contentchat/internal/domain/summarize"
	"github.com/0xTanzim/contentchat/internal/infra/config"
	"github.com/0xTanzim/contentchat/internal/infra/engine/chatgpt"
	httpiface "github.com/0xTanzim/contentchat/internal/interface/http"
	"github.com/0xTanzim/contentchat/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideChatGPTClient,
		provideSummarizeConfig,
		provideChatConfig,
		provideHistoryConfig,
		provideSummaryCache,
		provideHistoryRepository,
		provideLibraryStore,
		summarize.NewService,
		chat.NewController,
		history.NewService,
		wire.Bind(new(engine.Engine), new(*chatgpt.Client)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
