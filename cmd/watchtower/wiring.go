package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/blocksentry/watchtower/internal/blockingest"
	"github.com/blocksentry/watchtower/internal/blockproc"
	"github.com/blocksentry/watchtower/internal/config"
	"github.com/blocksentry/watchtower/internal/delivery"
	auditkafka "github.com/blocksentry/watchtower/internal/infra/audit/kafka"
	"github.com/blocksentry/watchtower/internal/infra/chat/telegram"
	"github.com/blocksentry/watchtower/internal/infra/httpapi"
	"github.com/blocksentry/watchtower/internal/infra/signature"
	"github.com/blocksentry/watchtower/internal/infra/storage/bolt"
	"github.com/blocksentry/watchtower/internal/infra/storage/hwmfile"
	"github.com/blocksentry/watchtower/internal/infra/storage/postgres"
	redisstore "github.com/blocksentry/watchtower/internal/infra/storage/redis"
	"github.com/blocksentry/watchtower/internal/multicall"
	"github.com/blocksentry/watchtower/internal/pkg/logger"
	"github.com/blocksentry/watchtower/internal/pkg/shutdown"
	httptransport "github.com/blocksentry/watchtower/internal/pkg/transport/http"
	"github.com/blocksentry/watchtower/internal/pkg/transport/jsonrpc"
	"github.com/blocksentry/watchtower/internal/render"
	"github.com/blocksentry/watchtower/internal/rpcfanout"
	"github.com/blocksentry/watchtower/internal/tokenmeta"
	"github.com/blocksentry/watchtower/internal/tracedecoder"
	"github.com/blocksentry/watchtower/internal/txrouter"
	"github.com/blocksentry/watchtower/internal/walletregistry"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-telegram/bot/models"
)

// defaultBaseTokenSymbols names the quote currencies OrderTokens sorts
// last, in addition to the chain's own native symbol.
var defaultBaseTokenSymbols = []string{"WETH", "WBNB", "WMATIC", "USDT", "USDC", "DAI", "BUSD"}

// buildRPCClient wires the config's RPC endpoint list into a single
// consensus-reducing fan-out client, shared across ingestion, decoding,
// and multicall.
func buildRPCClient(cfg *config.Config) *rpcfanout.Client {
	httpClient := httptransport.NewClient().StandardClient()
	clients := make([]jsonrpc.Client, len(cfg.RPCURLs))
	for i, url := range cfg.RPCURLs {
		clients[i] = jsonrpc.NewClient(httpClient, url)
	}
	return rpcfanout.New(cfg.RPCURLs, clients)
}

func inlineButtonRows(rows [][]config.InlineButton) [][]render.ButtonTemplate {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]render.ButtonTemplate, len(rows))
	for i, row := range rows {
		buttons := make([]render.ButtonTemplate, len(row))
		for j, b := range row {
			buttons[j] = render.ButtonTemplate{Text: b.Text, URLTemplate: b.URLTemplate}
		}
		out[i] = buttons
	}
	return out
}

// buildPipeline is the cli.PipelineFactory: it wires every C1-C9
// component for a loaded configuration into a single blockproc.Service,
// and returns a cleanup function that runs an ordered shutdown of every
// resource it opened, regardless of whether the pipeline was ever
// started.
func buildPipeline(ctx context.Context, cfg *config.Config) (blockproc.Service, func(), error) {
	mgr := shutdown.New(0)
	abort := func() { mgr.Trigger(context.Background()) }

	db, err := bolt.Open(filepath.Join(cfg.DataDirOrDefault(), "watchtower.db"))
	if err != nil {
		return nil, abort, err
	}
	mgr.Register("close embedded database", shutdown.OrderCloseConnections, func(context.Context) error { return db.Close() })

	fileCheckpoint := hwmfile.New(filepath.Join(cfg.DataDirOrDefault(), "hwm"))
	checkpoint := hwmfile.NewMirrored(fileCheckpoint, db.Progress())

	names, err := bolt.LoadNameTable(ctx, db.Ens())
	if err != nil {
		return nil, abort, err
	}

	pg, err := postgres.Open(ctx, postgres.Config{
		Host:     cfg.SQL.Host,
		User:     cfg.SQL.User,
		Password: cfg.SQL.Password,
		Database: cfg.SQL.Database,
	})
	if err != nil {
		return nil, abort, err
	}
	mgr.Register("close relational store", shutdown.OrderCloseConnections, func(context.Context) error { return pg.Close() })

	snapshot := postgres.NewSnapshotStore(pg)
	go snapshot.Run(ctx)

	rpcClient := buildRPCClient(cfg)

	bundler := multicall.New(rpcClient, common.HexToAddress(cfg.MulticallAddr))
	tokens := tokenmeta.New(db.Tokens(), bundler, append(defaultBaseTokenSymbols, cfg.NativeSymbol))

	decoder := tracedecoder.New(rpcClient, tokens)

	renderer := render.New(cfg.ChainLabel, cfg.NativeSymbol, 18, cfg.ExplorerBaseURL, inlineButtonRows(cfg.InlineButtons))

	sigClient := httptransport.NewClient()
	signatures := signature.New(sigClient, db.Selectors())

	queues := make(map[string]*delivery.Queue, len(cfg.Bots))
	for _, botCfg := range cfg.Bots {
		bot, err := telegram.NewBot(ctx, telegram.BotConfig{ID: botCfg.ID, Token: botCfg.Token, Polling: botCfg.Polling, OpenAccess: botCfg.OpenAccess})
		if err != nil {
			return nil, abort, err
		}
		if err := telegram.SetCommands(ctx, bot, []models.BotCommand{
			{Command: "start", Description: "Show a welcome message"},
		}); err != nil {
			logger.Warn(ctx, "failed to register bot command menu", "bot", botCfg.ID, "error", err)
		}

		transport := telegram.New(bot)
		queue := delivery.New(transport, delivery.WithUnreachableHook(func(chatID string) {
			if err := postgres.NewWalletStorage(pg, botCfg.ID).BlockSubscriber(ctx, chatID, botCfg.ID); err != nil {
				logger.Warn(ctx, "failed to block unreachable subscriber", "bot", botCfg.ID, "chat", chatID, "error", err)
			}
		}))
		queues[botCfg.ID] = queue
	}
	router := delivery.NewRouter(queues)
	go router.Run(ctx)
	mgr.Register("stop delivery queues", shutdown.OrderStopDelivery, func(context.Context) error { router.Close(); return nil })

	var txDelivery txrouter.Delivery = router
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := auditkafka.New(auditkafka.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic}, router)
		if err != nil {
			return nil, abort, err
		}
		txDelivery = sink
		mgr.Register("flush audit sink", shutdown.OrderFlushAudit, func(context.Context) error { return sink.Close() })
	}

	txOpts := []txrouter.Option{}
	if cfg.Redis.Addr != "" {
		redisConn, err := redisstore.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn(ctx, "redis dedup accelerator unavailable, continuing without it", "error", err)
		} else {
			mgr.Register("close redis connection", shutdown.OrderCloseConnections, func(context.Context) error { return redisConn.Close() })
			txOpts = append(txOpts, txrouter.WithDedupAccelerator(redisstore.NewDedupGuard(redisConn, "dedup", 0)))
		}
	}

	txService := txrouter.New(snapshot, decoder, renderer, txDelivery, signatures, names, txOpts...)

	ingest := blockingest.New(rpcClient, checkpoint)

	pipeline := blockproc.New(ingest, txService)

	httpServer := httpapi.New(cfg.ListenAddrOrDefault(), ingest, router)
	go func() {
		if err := httpServer.Run(ctx); err != nil {
			logger.Warn(ctx, "status http server exited with error", "error", err)
		}
	}()
	mgr.Register("close status http server", shutdown.OrderCloseConnections, func(closeCtx context.Context) error { return httpServer.Close(closeCtx) })

	cleanup := func() { mgr.Trigger(context.Background()) }
	return pipeline, cleanup, nil
}

// buildWalletRegistry is the cli.WalletRegistryFactory: it opens the
// shared relational store and roots wallet registration under the
// operator CLI's own configured bot slot (the first entry in cfg.Bots).
func buildWalletRegistry(ctx context.Context, cfg *config.Config) (walletregistry.Service, func(), error) {
	if len(cfg.Bots) == 0 {
		return nil, func() {}, fmt.Errorf("watchtower: configuration has no bots to register wallets under")
	}

	pg, err := postgres.Open(ctx, postgres.Config{
		Host:     cfg.SQL.Host,
		User:     cfg.SQL.User,
		Password: cfg.SQL.Password,
		Database: cfg.SQL.Database,
	})
	if err != nil {
		return nil, func() {}, err
	}
	cleanup := func() { _ = pg.Close() }

	var service walletregistry.Service = walletregistry.New(postgres.NewWalletStorage(pg, cfg.Bots[0].ID))

	if cfg.Redis.Addr != "" {
		redisConn, err := redisstore.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn(ctx, "redis dedup accelerator unavailable, continuing without it", "error", err)
		} else {
			guard := redisstore.NewDedupGuard(redisConn, "watch", 0)
			service = redisstore.NewRegistrationGuard(service, guard)
			prev := cleanup
			cleanup = func() { prev(); _ = redisConn.Close() }
		}
	}

	return service, cleanup, nil
}
