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

package generate

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/greenmaskio/etlmodel/internal/codegen"
	"github.com/greenmaskio/etlmodel/internal/domains"
	"github.com/greenmaskio/etlmodel/internal/repository"
	"github.com/greenmaskio/etlmodel/internal/storages/builder"
	"github.com/greenmaskio/etlmodel/internal/utils/logger"
)

var (
	Cmd = &cobra.Command{
		Use:   "generate",
		Short: "generate SAS code of a job",
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
	output string
)

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, err := repository.OpenJob(ctx, Config, source)
	if err != nil {
		return fmt.Errorf("cannot open job: %w", err)
	}

	seg := codegen.NewSegment(Config.Codegen.DefaultServer)
	seg.Diagnostics = Config.Codegen.Diagnostics
	seg.RowCount = Config.Codegen.RowCount
	if err = job.GenerateCode(seg); err != nil {
		return fmt.Errorf("cannot generate code of job %s: %w", job.Name(), err)
	}

	if output == "" {
		_, err = fmt.Fprint(os.Stdout, seg.String())
		return err
	}
	st, err := builder.GetStorage(ctx, &Config.Storage, &Config.Log)
	if err != nil {
		return fmt.Errorf("error building storage: %w", err)
	}
	p, err := codegen.WriteArtifact(ctx, st, output, seg.String(), Config.Codegen.Compress)
	if err != nil {
		return err
	}
	log.Info().
		Str("Job", job.Name()).
		Str("Path", p).
		Msg("generated code stored")
	return nil
}

func init() {
	Cmd.Flags().StringVar(&source.File, "file", "", "YAML job file")
	Cmd.Flags().StringVar(&source.Job, "job", "", "name or id of a job stored in the repository")
	Cmd.Flags().StringVarP(&output, "output", "o", "", "storage path of the generated code, stdout when empty")
	Cmd.MarkFlagsMutuallyExclusive("file", "job")

	serverFlagName := "default-server"
	Cmd.Flags().String(
		serverFlagName, "", "server the job runs on, the server of the job when empty",
	)
	flag := Cmd.Flags().Lookup(serverFlagName)
	if err := viper.BindPFlag("codegen.default_server", flag); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}

	diagnosticsFlagName := "diagnostics"
	Cmd.Flags().Bool(
		diagnosticsFlagName, false, "emit notes about target columns without a mapping",
	)
	flag = Cmd.Flags().Lookup(diagnosticsFlagName)
	if err := viper.BindPFlag("codegen.diagnostics", flag); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}

	rowCountFlagName := "row-count"
	Cmd.Flags().Bool(
		rowCountFlagName, false, "collect the row count of every step",
	)
	flag = Cmd.Flags().Lookup(rowCountFlagName)
	if err := viper.BindPFlag("codegen.row_count", flag); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}

	compressFlagName := "compress"
	Cmd.Flags().Bool(
		compressFlagName, false, "gzip the code stored with --output",
	)
	flag = Cmd.Flags().Lookup(compressFlagName)
	if err := viper.BindPFlag("codegen.compress", flag); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
