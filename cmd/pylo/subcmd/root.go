/*
	(c) Copyright NetFoundry Inc. Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package subcmd

import (
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "pylo",
	Short: "Deploy and converge PAN-OS HA pairs",
	Long: `pylo configures a PAN-OS firewall pair for high availability, commits the
configuration on every member, discovers the active member and makes sure its
running configuration is synchronized to the passive peer.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(rootOptions.logLevel)
		if err != nil {
			return errors.Wrapf(err, "invalid --log-level")
		}
		pfxlog.GlobalInit(level, pfxlog.DefaultOptions().SetTrimPrefix("github.com/chunga-ict/"))
		return nil
	},
}

var rootOptions = struct {
	logLevel string
	noBanner bool
	fontDir  string
}{}

func init() {
	RootCmd.PersistentFlags().StringVar(&rootOptions.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	RootCmd.PersistentFlags().BoolVar(&rootOptions.noBanner, "no-banner", false, "do not print the banner")
	RootCmd.PersistentFlags().StringVar(&rootOptions.fontDir, "font-dir", "", "directory holding figlet fonts for the banner")
}

func Execute() error {
	return RootCmd.Execute()
}
