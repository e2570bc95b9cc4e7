package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xaionaro-go/hwdecode/pkg/decoder/libav"
)

func decoders(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	for _, name := range libav.NewBackend(ctx).Decoders() {
		fmt.Println(name)
	}
}
