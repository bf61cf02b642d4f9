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

package list_transforms

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/greenmaskio/etlmodel/internal/domains"
	"github.com/greenmaskio/etlmodel/internal/transforms"
	"github.com/greenmaskio/etlmodel/internal/utils/logger"
)

var (
	Cmd = &cobra.Command{
		Use:   "list-transforms [name...]",
		Short: "list of the transform kinds with their limits",
		Run: func(cmd *cobra.Command, args []string) {
			if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
				log.Err(err).Msg("")
			}

			if err := run(os.Stdout, args); err != nil {
				log.Fatal().Err(err).Msg("")
			}
		},
	}
	Config = domains.NewConfig()
	format string
)

const (
	JsonFormatName = "json"
	TextFormatName = "text"
)

func run(w io.Writer, names []string) error {
	defs, err := selectDefinitions(transforms.DefaultRegistry, names)
	if err != nil {
		return err
	}
	switch format {
	case JsonFormatName:
		err = json.NewEncoder(w).Encode(defs)
	case TextFormatName:
		listText(w, defs)
	default:
		return fmt.Errorf(`unknown format %s`, format)
	}
	if err != nil {
		return fmt.Errorf("error listing transforms: %w", err)
	}
	return nil
}

func selectDefinitions(registry *transforms.Registry, names []string) ([]*transforms.Definition, error) {
	if len(names) == 0 {
		return registry.List(), nil
	}
	res := make([]*transforms.Definition, 0, len(names))
	for _, name := range names {
		def, ok := registry.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown transform kind \"%s\"", name)
		}
		res = append(res, def)
	}
	return res, nil
}

func limit(v int) string {
	if v >= transforms.Unlimited {
		return "unlimited"
	}
	return strconv.Itoa(v)
}

func listText(w io.Writer, defs []*transforms.Definition) {
	var data [][]string
	table := tablewriter.NewWriter(w)
	for _, def := range defs {
		name := def.Properties.Name
		data = append(data, []string{name, "description", def.Properties.Description})
		data = append(data, []string{name, "max_sources", limit(def.MaxSources)})
		data = append(data, []string{name, "max_targets", limit(def.MaxTargets)})
		data = append(data, []string{name, "allow_expressions", strconv.FormatBool(def.AllowExpressions)})
		for key, value := range def.Properties.Meta {
			data = append(data, []string{name, key, fmt.Sprintf("%v", value)})
		}
	}
	table.AppendBulk(data)
	table.SetRowLine(true)
	table.SetAutoMergeCellsByColumnIndex([]int{0})
	table.Render()
}

func init() {
	Cmd.Flags().StringVarP(&format, "format", "f", TextFormatName, "output format [text|json]")
}
