package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/xaionaro-go/hwdecode/pkg/decoder/libav"
)

func hwConfigs(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	codecName, err := cmd.Flags().GetString("codec")
	assertNoError(ctx, err)

	codec := libav.NewBackend(ctx).FindDecoder(codecName)
	if codec == nil {
		assertNoError(ctx, fmt.Errorf("decoder '%s' not found", codecName))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "#\tDEVICE TYPE\tMETHODS\tPIXEL FORMAT\n")
	for idx, hwCfg := range codec.HardwareConfigs() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", idx, hwCfg.DeviceType, hwCfg.Methods, hwCfg.PixelFormat)
	}
	assertNoError(ctx, w.Flush())
}
