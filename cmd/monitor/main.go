package main

import (
	"os"

	"github.com/nguyentranbao-ct/deal-monitor/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
