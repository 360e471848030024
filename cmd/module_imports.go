package cmd

// import modules so their init() functions are called

import (
	_ "github.com/lanternsec/lantern/pkg/modules/m365/audit"
)
