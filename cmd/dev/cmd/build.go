package cmd

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gophertribe/devtool/build"
)

func BuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the am2321 cli",
		RunE: func(cmd *cobra.Command, args []string) error {
			version := cmd.Flag("version").Value.String()
			crossOs := cmd.Flag("cross-os").Value.String()
			crossArch := cmd.Flag("cross-arch").Value.String()

			os := runtime.GOOS
			arch := runtime.GOARCH
			// the sensor usually hangs off an ARM board
			if crossOs != "" && crossArch != "" {
				os = crossOs
				arch = crossArch
			}
			return build.GoBuild("dist/am2321", "./cmd/am2321", build.GoBuildOpts{
				Version:       version,
				InjectVersion: true,
				ConfigPackage: "github.com/ktooi/am2321/pkg/config",
				Arch:          arch,
				OS:            os,
			})
		},
	}
	cmd.Flags().String("version", "latest", "version of the cli")
	cmd.Flags().String("cross-os", "", "os to cross-compile for")
	cmd.Flags().String("cross-arch", "", "arch to cross-compile for")

	return cmd
}
