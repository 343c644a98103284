// Command soc-console is a terminal client for the CyberBlue SOC backend.
package main

import "github.com/cyberblue/soc-console/cmd/soc-console/cmd"

func main() {
	cmd.Execute()
}
