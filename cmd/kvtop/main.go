// Command kvtop shows a live table of every node's status: its leader
// belief, alive set, key count and write path state.
package main

import (
	"flag"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	nodes := flag.String("nodes", "localhost:7001,localhost:7002,localhost:7003", "Comma separated node addresses")
	interval := flag.Duration("interval", time.Second, "Poll interval")
	flag.Parse()

	addrs := splitAddrs(*nodes)
	if len(addrs) == 0 {
		log.Fatalf("No node addresses given")
	}

	p := newPoller(addrs, *interval)
	if _, err := tea.NewProgram(initialModel(p, *interval), tea.WithAltScreen()).Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}

func splitAddrs(s string) []string {
	var addrs []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}
