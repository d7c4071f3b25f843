package cmd

import (
	"fmt"

	"github.com/jmcleod/omiassist/api"
)

const banner = `
   ___            _      _            _     _
  / _ \ _ __ ___ (_)    / \   ___ ___(_)___| |_
 | | | | '_ ` + "`" + ` _ \| |   / _ \ / __/ __| / __| __|
 | |_| | | | | | | |  / ___ \\__ \__ \ \__ \ |_
  \___/|_| |_| |_|_| /_/   \_\___/___/_|___/\__|
`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Omi to Telegram actions - Version %s\x1b[0m\n\n", api.Version)
}
