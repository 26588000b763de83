// Package cmn provides common low-level types, configuration, and error
// kinds shared by every ddfsnode package.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"flag"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Config is the node's full runtime configuration, loaded once at startup
// from a JSON file and never mutated afterwards (aside from the *Str ->
// time.Duration expansion done in validate).
type Config struct {
	NodeName  string `json:"nodename"`
	DdfsRoot  string `json:"ddfs_root"`
	DiscoRoot string `json:"disco_root"`

	PutMax int `json:"put_max"`
	GetMax int `json:"get_max"`

	PutPort int `json:"put_port"`
	GetPort int `json:"get_port"`

	PutEnabled bool `json:"put_enabled"`
	GetEnabled bool `json:"get_enabled"`

	HTTPQueueLength int `json:"HTTP_QUEUE_LENGTH"`

	DiskIntervalStr string        `json:"DISK_INTERVAL"`
	DiskInterval    time.Duration `json:"-"`
	TagIntervalStr  string        `json:"TAG_INTERVAL"`
	TagInterval     time.Duration `json:"-"`
	NodeStartupStr  string        `json:"NODE_STARTUP"`
	NodeStartup     time.Duration `json:"-"`

	AdminAddr string `json:"admin_addr"`
	LogLevel  int    `json:"log_level"`
}

// LoadConfig reads the JSON config at fpath and validates+expands it.
func LoadConfig(fpath string) (*Config, error) {
	if fpath == "" {
		return nil, NewError(KindConfigMissing, "load_config", errors.New("empty config path"))
	}
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, NewError(KindConfigMissing, "read_config", err)
	}
	c := &Config{}
	if err := jsoniter.Unmarshal(data, c); err != nil {
		return nil, NewError(KindConfigMissing, "unmarshal_config", err)
	}
	if err := c.validate(); err != nil {
		return nil, NewError(KindConfigMissing, "validate_config", err)
	}
	return c, nil
}

// ApplyFlags overlays any values passed on the command line, matching the
// teacher's two-layer (file, then flag) config load order.
func (c *Config) ApplyFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.AdminAddr, "admin", c.AdminAddr, "admin HTTP listen address")
	fs.IntVar(&c.LogLevel, "loglevel", c.LogLevel, "glog verbosity")
}

func (c *Config) validate() (err error) {
	if c.NodeName == "" {
		return errors.New("nodename is required")
	}
	if c.DdfsRoot == "" {
		return errors.New("ddfs_root is required")
	}
	if c.PutMax <= 0 {
		c.PutMax = 4
	}
	if c.GetMax <= 0 {
		c.GetMax = 4
	}
	if c.HTTPQueueLength <= 0 {
		c.HTTPQueueLength = 16
	}
	if c.DiskIntervalStr == "" {
		c.DiskIntervalStr = "20s"
	}
	if c.TagIntervalStr == "" {
		c.TagIntervalStr = "10s"
	}
	if c.NodeStartupStr == "" {
		c.NodeStartupStr = "30s"
	}
	if c.AdminAddr == "" {
		c.AdminAddr = ":0"
	}
	if c.DiskInterval, err = time.ParseDuration(c.DiskIntervalStr); err != nil {
		return errors.Wrap(err, "DISK_INTERVAL")
	}
	if c.TagInterval, err = time.ParseDuration(c.TagIntervalStr); err != nil {
		return errors.Wrap(err, "TAG_INTERVAL")
	}
	if c.NodeStartup, err = time.ParseDuration(c.NodeStartupStr); err != nil {
		return errors.Wrap(err, "NODE_STARTUP")
	}
	return nil
}
