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

package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/greenmaskio/etlmodel/internal/domains"
	"github.com/greenmaskio/etlmodel/internal/model"
	"github.com/greenmaskio/etlmodel/internal/repository"
	"github.com/greenmaskio/etlmodel/internal/utils/logger"
)

var (
	Cmd = &cobra.Command{
		Use:   "validate",
		Short: "check the completeness of a job and print the validation warnings",
		Run: func(cmd *cobra.Command, args []string) {
			if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
				log.Err(err).Msg("")
			}

			if err := run(); err != nil {
				log.Fatal().Err(err).Msg("")
			}
		},
	}
	Config = domains.NewConfig()
	source repository.JobSource
)

const (
	JsonFormatName = "json"
	TextFormatName = "text"
)

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, err := repository.OpenJob(ctx, Config, source)
	if err != nil {
		return fmt.Errorf("cannot open job: %w", err)
	}
	warnings := job.Validate()
	if !Config.Validate.Warnings {
		warnings = warnings.Errors()
	}

	switch Config.Validate.Format {
	case JsonFormatName:
		err = printJson(os.Stdout, warnings)
	case TextFormatName, "":
		printText(os.Stdout, warnings)
	default:
		return fmt.Errorf(`unknown format %s`, Config.Validate.Format)
	}
	if err != nil {
		return err
	}
	if warnings.IsFatal() {
		return fmt.Errorf("job %s is incomplete", job.Name())
	}
	log.Info().Str("Job", job.Name()).Msg("job is complete")
	return nil
}

func printJson(w io.Writer, warnings model.ValidationWarnings) error {
	if warnings == nil {
		warnings = model.ValidationWarnings{}
	}
	return json.NewEncoder(w).Encode(warnings)
}

func printText(w io.Writer, warnings model.ValidationWarnings) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Object", "Severity", "Message", "Details"})
	for _, vw := range warnings {
		var details []string
		for _, key := range slices.Sorted(maps.Keys(vw.Meta)) {
			details = append(details, fmt.Sprintf("%s=%v", key, vw.Meta[key]))
		}
		table.Append([]string{vw.Object, vw.Severity, vw.Msg, strings.Join(details, ", ")})
	}
	table.SetAutoMergeCellsByColumnIndex([]int{0})
	table.SetRowLine(true)
	table.Render()
}

func init() {
	Cmd.Flags().StringVar(&source.File, "file", "", "YAML job file")
	Cmd.Flags().StringVar(&source.Job, "job", "", "name or id of a job stored in the repository")
	Cmd.MarkFlagsMutuallyExclusive("file", "job")

	formatFlagName := "format"
	Cmd.Flags().String(
		formatFlagName, TextFormatName, "output format [text|json]",
	)
	flag := Cmd.Flags().Lookup(formatFlagName)
	if err := viper.BindPFlag("validate.format", flag); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}

	warningsFlagName := "warnings"
	Cmd.Flags().Bool(
		warningsFlagName, true, "print warnings that do not make the job incomplete",
	)
	flag = Cmd.Flags().Lookup(warningsFlagName)
	if err := viper.BindPFlag("validate.warnings", flag); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
