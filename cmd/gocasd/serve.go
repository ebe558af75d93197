/*
 * Copyright 2019 gocas authors and its licensors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nameof/gocas/cache"
	cacheManagers "github.com/nameof/gocas/cache/managers"
	"github.com/nameof/gocas/config"
	"github.com/nameof/gocas/identity"
	identityBackends "github.com/nameof/gocas/identity/backends"
	"github.com/nameof/gocas/mq"
	"github.com/nameof/gocas/mq/queues"
	"github.com/nameof/gocas/provider"
	"github.com/nameof/gocas/server"
	"github.com/nameof/gocas/session"
	"github.com/nameof/gocas/utils"
)

const defaultListenAddr = "127.0.0.1:8778"

// Identity backends.
const (
	identityBackendNameDummy = "dummy"
	identityBackendNameFile  = "file"
)

func commandServe() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve <identity-backend> [...args]",
		Short: "Start server and listen for requests",
		Run: func(cmd *cobra.Command, args []string) {
			if err := serve(cmd, args); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		},
	}
	serveCmd.Flags().String("listen", defaultListenAddr, "TCP listen address")
	serveCmd.Flags().String("log-level", "info", "Log level (one of panic, fatal, error, warn, info or debug)")
	serveCmd.Flags().Bool("log-timestamp", true, "Prefix each log line with timestamp")
	serveCmd.Flags().String("redis", "", "Redis server address, empty selects in-memory session and queue storage")
	serveCmd.Flags().String("session-prefix", "gocas:session", "Key prefix of session state in Redis")
	serveCmd.Flags().String("logout-queue", "gocas:mq:logout", "Key of the logout broadcast queue in Redis")
	serveCmd.Flags().String("cookie-name", "", "Name of the session cookie")
	serveCmd.Flags().Bool("insecure", false, "Disable TLS certificate and hostname validation")

	return serveCmd
}

func serve(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	logTimestamp, _ := cmd.Flags().GetBool("log-timestamp")
	logLevel, _ := cmd.Flags().GetString("log-level")
	logger, err := newLogger(!logTimestamp, logLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %v", err)
	}
	logger.Infoln("serve start")

	listenAddr, _ := cmd.Flags().GetString("listen")
	cfg := &config.Config{
		ListenAddr: listenAddr,

		Logger: logger,
	}

	if tlsInsecureSkipVerify, _ := cmd.Flags().GetBool("insecure"); tlsInsecureSkipVerify {
		cfg.HTTPTransport = utils.HTTPTransportWithTLSClientConfig(utils.InsecureSkipVerifyTLSConfig())
		logger.Warnln("insecure mode, TLS client connections are susceptible to man-in-the-middle attacks")
	} else {
		cfg.HTTPTransport = utils.HTTPTransportWithTLSClientConfig(nil)
	}

	if len(args) == 0 {
		return fmt.Errorf("identity-backend argument missing")
	}
	identityBackendName := args[0]

	var backend identity.Backend
	switch identityBackendName {
	case identityBackendNameFile:
		if len(args) < 2 {
			return fmt.Errorf("file backend requires the users file as argument")
		}
		fileBackend, backendErr := identityBackends.NewFileBackend(args[1], logger)
		if backendErr != nil {
			return fmt.Errorf("failed to create identity backend: %v", backendErr)
		}
		logger.WithField("file", args[1]).Infoln("using file identity backend")
		backend = fileBackend
	case identityBackendNameDummy:
		logger.Warnln("using dummy identity backend")
		backend = &identityBackends.DummyBackend{}
	default:
		return fmt.Errorf("unknown identity backend %v", identityBackendName)
	}

	var dao cache.Dao
	var sender mq.Sender
	var runQueue func(context.Context, mq.Handler) error

	if redisAddr, _ := cmd.Flags().GetString("redis"); redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %v", err)
		}

		sessionPrefix, _ := cmd.Flags().GetString("session-prefix")
		dao = cacheManagers.NewRedisDao(redisClient, sessionPrefix, logger)

		logoutQueueKey, _ := cmd.Flags().GetString("logout-queue")
		redisQueue := queues.NewRedisQueue(redisClient, logoutQueueKey, logger)
		sender = redisQueue
		runQueue = redisQueue.Run

		logger.WithFields(logrus.Fields{
			"addr":   redisAddr,
			"prefix": sessionPrefix,
			"queue":  logoutQueueKey,
		}).Infoln("using Redis session and queue storage")
	} else {
		dao = cacheManagers.NewMemoryDao(ctx)

		memoryQueue := queues.NewMemoryQueue(0)
		sender = memoryQueue
		runQueue = memoryQueue.Run

		logger.Warnln("using in-memory session and queue storage, state is lost on restart")
	}

	receiver := mq.NewLogoutMessageReceiver(cfg)
	go func() {
		if err := runQueue(ctx, receiver); err != nil {
			logger.WithError(err).Errorln("logout queue receiver exited")
		}
	}()

	cookieName, _ := cmd.Flags().GetString("cookie-name")
	sessions := session.NewManager(&session.Config{
		Config: cfg,

		Dao:        dao,
		CookieName: cookieName,
	})

	activeProvider, err := provider.NewProvider(&provider.Config{
		Config: cfg,

		Sessions: sessions,
		Backend:  backend,
		Sender:   sender,
	})
	if err != nil {
		return fmt.Errorf("failed to create provider: %v", err)
	}

	srv, err := server.NewServer(&server.Config{
		Config: cfg,

		Provider: activeProvider,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %v", err)
	}

	logger.Infoln("serve started")
	return srv.Serve(ctx)
}
