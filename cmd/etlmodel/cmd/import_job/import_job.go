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

package import_job

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/greenmaskio/etlmodel/internal/domains"
	"github.com/greenmaskio/etlmodel/internal/repository"
	"github.com/greenmaskio/etlmodel/internal/utils/logger"
)

var (
	Cmd = &cobra.Command{
		Use:   "import [job file]",
		Args:  cobra.ExactArgs(1),
		Short: "import a YAML job file into the repository",
		Run: func(cmd *cobra.Command, args []string) {
			if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
				log.Err(err).Msg("")
			}

			if err := run(args[0]); err != nil {
				log.Fatal().Err(err).Msg("")
			}
		},
	}
	Config = domains.NewConfig()
	force  bool
)

func run(filePath string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, err := repository.OpenJob(ctx, Config, repository.JobSource{File: filePath})
	if err != nil {
		return fmt.Errorf("cannot build job: %w", err)
	}
	warnings := job.Validate()
	for _, w := range warnings {
		log.Warn().
			Str("Object", w.Object).
			Str("Severity", w.Severity).
			Any("Meta", w.Meta).
			Msg(w.Msg)
	}
	if warnings.IsFatal() && !force {
		return fmt.Errorf("job %s is incomplete, use --force to import it anyway", job.Name())
	}

	ctx, cancel = repository.WithTimeout(ctx, Config)
	defer cancel()
	repo, err := repository.Open(ctx, Config)
	if err != nil {
		return err
	}
	defer repo.Close(ctx)

	_, err = repo.FindJob(ctx, job.Name())
	if err == nil {
		return fmt.Errorf("job %s already exists in the repository", job.Name())
	} else if !errors.Is(err, repository.ErrJobNotFound) {
		return err
	}
	if _, err = job.SaveToOMR(ctx, repo.Repository); err != nil {
		return err
	}
	fmt.Println(job.ID())
	return nil
}

func init() {
	Cmd.Flags().BoolVarP(&force, "force", "f", false, "import the job even when it is incomplete")
}
