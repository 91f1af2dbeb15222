// Command graphdelta-monitor is a read-only TUI that dials every peer named
// in a node config's peer list, polls each one's Status RPC, and renders
// term/role/commit-index per peer — flagging when fewer than a majority of
// configured peers are reachable, or when more than one distinct leader is
// reported.
package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/graphdelta/pkg/config"
	"github.com/dd0wney/graphdelta/pkg/peerrpc"
	"github.com/dd0wney/graphdelta/pkg/raft"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginLeft(2).
			MarginTop(1)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true).
			MarginLeft(2)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00FF00")).
		MarginLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type peerStatus struct {
	id     string
	addr   string
	ok     bool
	err    string
	status raft.StatusReply
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type model struct {
	peers []peerEndpoint
	rows  []peerStatus
	table table.Model
}

type peerEndpoint struct {
	id   string
	addr string
}

func initialModel(peers []peerEndpoint) model {
	columns := []table.Column{
		{Title: "Peer", Width: 16},
		{Title: "Addr", Width: 24},
		{Title: "Role", Width: 10},
		{Title: "Term", Width: 8},
		{Title: "Commit", Width: 10},
		{Title: "Leader", Width: 16},
	}
	t := table.New(table.WithColumns(columns), table.WithHeight(len(peers)+2))
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	t.SetStyles(s)

	return model{peers: peers, table: t}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(pollCmd(m.peers), tickCmd())
}

func pollCmd(peers []peerEndpoint) tea.Cmd {
	return func() tea.Msg {
		return pollResults(peers)
	}
}

func pollResults(peers []peerEndpoint) []peerStatus {
	rows := make([]peerStatus, len(peers))
	for i, p := range peers {
		client, err := peerrpc.Dial(p.id, p.addr, 2*time.Second)
		if err != nil {
			rows[i] = peerStatus{id: p.id, addr: p.addr, err: err.Error()}
			continue
		}
		status, err := client.Status()
		client.Close()
		if err != nil {
			rows[i] = peerStatus{id: p.id, addr: p.addr, err: err.Error()}
			continue
		}
		rows[i] = peerStatus{id: p.id, addr: p.addr, ok: true, status: status}
	}
	return rows
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		return m, pollCmd(m.peers)
	case []peerStatus:
		m.rows = msg
		m.table.SetRows(toTableRows(msg))
	}
	return m, nil
}

func toTableRows(rows []peerStatus) []table.Row {
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		if !r.ok {
			out = append(out, table.Row{r.id, r.addr, "unreachable: " + r.err, "-", "-", "-"})
			continue
		}
		out = append(out, table.Row{
			r.id,
			r.addr,
			r.status.Role,
			fmt.Sprintf("%d", r.status.Term),
			fmt.Sprintf("%d", r.status.CommitIndex),
			r.status.LeaderID,
		})
	}
	return out
}

func (m model) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("graphdelta cluster status"))
	s.WriteString("\n\n")
	s.WriteString(m.table.View())
	s.WriteString("\n")

	reachable, leaders := summarize(m.rows)
	majority := len(m.peers)/2 + 1
	if reachable < majority {
		s.WriteString(warnStyle.Render(fmt.Sprintf("only %d/%d peers reachable — below majority (%d)", reachable, len(m.peers), majority)))
	} else if leaders > 1 {
		s.WriteString(warnStyle.Render(fmt.Sprintf("split brain: %d distinct leaders reported", leaders)))
	} else {
		s.WriteString(okStyle.Render(fmt.Sprintf("%d/%d peers reachable", reachable, len(m.peers))))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("q: quit"))
	return s.String()
}

// summarize reports how many peers responded and how many distinct
// non-empty leader ids were reported across them — more than one means the
// cluster is (at least transiently) split-brained.
func summarize(rows []peerStatus) (reachable int, distinctLeaders int) {
	seen := make(map[string]struct{})
	for _, r := range rows {
		if !r.ok {
			continue
		}
		reachable++
		if r.status.LeaderID != "" {
			seen[r.status.LeaderID] = struct{}{}
		}
	}
	return reachable, len(seen)
}

func main() {
	configPath := flag.String("config", "./graphdelta.yaml", "Path to the node config YAML naming the cluster's peers")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	addrs := cfg.PeerAddrs()
	ids := make([]string, 0, len(addrs))
	for id := range addrs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	peers := make([]peerEndpoint, 0, len(ids))
	for _, id := range ids {
		peers = append(peers, peerEndpoint{id: id, addr: addrs[id]})
	}
	if cfg.ListenAddr != "" {
		peers = append(peers, peerEndpoint{id: cfg.NodeID, addr: cfg.ListenAddr})
		sort.Slice(peers, func(i, j int) bool { return peers[i].id < peers[j].id })
	}

	p := tea.NewProgram(initialModel(peers), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("monitor exited: %v", err)
	}
}
