/*
 * Copyright 2024 caiflower Authors
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
 */

package main

import (
	"fmt"
	"os"

	"github.com/caiflower/webserver/global"
	"github.com/caiflower/webserver/global/config"
	"github.com/caiflower/webserver/pkg/crontab"
	"github.com/caiflower/webserver/pkg/logger"
	"github.com/caiflower/webserver/pkg/tools"
	"github.com/caiflower/webserver/web/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "webserver: %s\n", err.Error())
		os.Exit(1)
	}
}

func run() error {
	defaultConfig := config.DefaultConfig{}
	if err := config.LoadDefaultConfig(&defaultConfig); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.InitLogger(&defaultConfig.LoggerConfig)
	defer logger.DefaultLogger().Close()
	logger.Info("load config %s", tools.ToJson(defaultConfig))

	webServer, err := server.NewServer(defaultConfig.ServerConfig, logger.DefaultLogger())
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	cron := crontab.NewCronTabManger("cache-report", logger.DefaultLogger())
	if spec := defaultConfig.ServerConfig.CacheReportCron; spec != "" {
		if _, err = cron.AddFunc(spec, webServer.ReportCache); err != nil {
			return fmt.Errorf("schedule cache report %q: %w", spec, err)
		}
	}

	global.DefaultResourceManger.AddDaemonWithOrder(webServer, 100)
	global.DefaultResourceManger.AddDaemonWithOrder(cron, 10)
	return global.DefaultResourceManger.Signal()
}
