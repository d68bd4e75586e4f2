// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/veng/core"
	"github.com/devblok/veng/device"
	"github.com/devblok/veng/device/vkd"
)

var (
	envFile = flag.String("env", "", "Configuration file overriding the bundled defaults")
	indent  = flag.Bool("indent", false, "Indent the JSON output")
)

func main() {
	flag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := core.LoadConfiguration(files...)
	if err != nil {
		log.WithError(err).Fatal("Configuration failed")
	}
	log.SetLevel(cfg.LogLevel)

	driver, err := vkd.New(nil)
	if err != nil {
		log.WithError(err).Fatal("Vulkan loader unavailable")
	}

	info := device.InstanceInfo{
		ApplicationName:    cfg.Application.Name,
		ApplicationVersion: cfg.Application.Version,
		EngineName:         cfg.Application.EngineName,
		EngineVersion:      cfg.Application.EngineVersion,
		APIVersion:         core.APIVersion,
	}
	if cfg.Instance.Portability {
		available, err := device.NewProber(driver).Supported(device.InstanceExtensions)
		if err == nil && available.Has(device.PortabilityEnumerationExtension) {
			info.Extensions = append(info.Extensions, device.PortabilityEnumerationExtension)
			info.EnumeratePortability = true
		}
	}

	inst, err := driver.CreateInstance(info)
	if err != nil {
		log.WithError(err).Fatal("Instance creation failed")
	}

	infos, err := device.Describe(driver, inst)
	if err != nil {
		driver.DestroyInstance(inst)
		log.WithError(err).Fatal("Device enumeration failed")
	}

	var bytes []byte
	if *indent {
		bytes, err = json.MarshalIndent(infos, "", "  ")
	} else {
		bytes, err = json.Marshal(infos)
	}
	driver.DestroyInstance(inst)
	if err != nil {
		log.WithError(err).Fatal("Encoding failed")
	}
	fmt.Printf("%s\n", bytes)
}
