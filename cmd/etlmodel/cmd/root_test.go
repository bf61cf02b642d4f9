// Copyright 2023 Greenmask
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmaskio/etlmodel/internal/model"
)

// resetConfig - restores the config file path, viper and the decoded config after the test
func resetConfig(t *testing.T) {
	origCfgFile := cfgFile
	origConfig := *Config
	t.Cleanup(func() {
		cfgFile = origCfgFile
		*Config = origConfig
		viper.Reset()
	})
	viper.Reset()
}

func TestExplicitConfigFile(t *testing.T) {
	resetConfig(t)
	tempDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tempDir)

	explicitConfigPath := filepath.Join(tempDir, "config.yml")
	require.NoError(t, os.WriteFile(explicitConfigPath, []byte(`
log:
  level: info
repository:
  type: storage
  timeout: 1d12h
mapping:
  non_work_table_handling: map
  allow_expressions: false
codegen:
  default_server: SASApp
`), 0644))

	// Distraction in the default location
	configDir := filepath.Join(tempDir, appName)
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, defaultConfigFileName), []byte(`
log:
  level: debug
`), 0644))

	cfgFile = explicitConfigPath
	initConfig()

	assert.Equal(t, "info", viper.GetString("log.level"))
	assert.Equal(t, explicitConfigPath, cfgFile)
	assert.Equal(t, "storage", Config.Repository.Type)
	assert.Equal(t, 36*time.Hour, Config.Repository.Timeout)
	assert.Equal(t, model.NonWorkTableMap, Config.Mapping.NonWorkTableHandling)
	assert.False(t, Config.Mapping.AllowExpressions)
	assert.Equal(t, "SASApp", Config.Codegen.DefaultServer)
}

func TestDefaultConfigFile(t *testing.T) {
	resetConfig(t)
	tempDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tempDir)

	configDir := filepath.Join(tempDir, appName)
	require.NoError(t, os.MkdirAll(configDir, 0755))
	defaultPath := filepath.Join(configDir, defaultConfigFileName)
	require.NoError(t, os.WriteFile(defaultPath, []byte(`
log:
  level: debug
`), 0644))

	cfgFile = ""
	initConfig()

	assert.Equal(t, "debug", viper.GetString("log.level"))
	assert.Equal(t, defaultPath, cfgFile)
}

func TestDefaultConfigFile_Missing(t *testing.T) {
	resetConfig(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfgFile = ""
	initConfig()

	assert.Empty(t, cfgFile)
	assert.Equal(t, model.NonWorkTablePropagate, Config.Mapping.NonWorkTableHandling)
}
