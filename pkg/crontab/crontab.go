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

package crontab

import (
	golocalv1 "github.com/caiflower/webserver/pkg/golocal/v1"
	"github.com/caiflower/webserver/pkg/logger"
	"github.com/caiflower/webserver/pkg/tools"
	"github.com/robfig/cron/v3"
)

const _timeFormat = "2006-01-02 15:04:05"

type CronManger struct {
	name   string
	cron   *cron.Cron
	logger logger.ILog
}

// NewCronTabManger creates a manager whose specs carry a leading seconds field.
func NewCronTabManger(name string, log logger.ILog) *CronManger {
	if log == nil {
		log = logger.DefaultLogger()
	}
	return &CronManger{name: name, cron: cron.New(cron.WithSeconds()), logger: log}
}

func (c *CronManger) Name() string {
	return "CRONTAB:" + c.name
}

func (c *CronManger) Start() error {
	c.cron.Start()
	c.logger.Info("[Crontab] %s started.", c.name)
	return nil
}

// Close stops the scheduler and waits for running jobs.
func (c *CronManger) Close() {
	<-c.cron.Stop().Done()
	c.logger.Info("[Crontab] %s stopped.", c.name)
}

// AddCronJob schedules job. Every run gets its own trace id.
func (c *CronManger) AddCronJob(spec string, job cron.Job) (cron.EntryID, error) {
	eid, err := c.cron.AddJob(spec, tracedJob{job: job})
	if err != nil {
		c.logger.Error("[Crontab] Add crontab failed. spec=%s. err=%v", spec, err)
		return eid, err
	}
	c.logger.Info("[Crontab] Add crontab. spec=%s. jobId=%v. nextTime=%s", spec, eid, c.cron.Entry(eid).Next.Format(_timeFormat))
	return eid, nil
}

func (c *CronManger) AddFunc(spec string, fn func()) (cron.EntryID, error) {
	return c.AddCronJob(spec, cron.FuncJob(fn))
}

func (c *CronManger) RemoveCronJob(id cron.EntryID) {
	c.cron.Remove(id)
}

type tracedJob struct {
	job cron.Job
}

func (t tracedJob) Run() {
	golocalv1.PutTraceID("cron-" + tools.UUID())
	defer golocalv1.Clean()
	t.job.Run()
}
