// Package blocklist rejects target hosts that must not be shortened.
package blocklist

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
)

// List is a set of blocked host names. A blocked host also blocks all of its
// subdomains. The zero value blocks nothing.
type List struct {
	mu    sync.RWMutex
	hosts map[string]bool
}

// New returns a list holding hosts.
func New(hosts ...string) *List {
	l := &List{}
	l.Replace(hosts)
	return l
}

// Load reads a JSON file of the form {"blocked_hosts": ["spam.example"]}.
func Load(filePath string) (*List, error) {
	l := &List{}
	if err := l.Reload(filePath); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload swaps the list contents for the file's.
func (l *List) Reload(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	var data struct {
		Blocked []string `json:"blocked_hosts"`
	}
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return err
	}
	l.Replace(data.Blocked)
	return nil
}

// Replace sets the blocked hosts.
func (l *List) Replace(hosts []string) {
	temp := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		h = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h)), ".")
		if h != "" {
			temp[h] = true
		}
	}

	l.mu.Lock()
	l.hosts = temp
	l.mu.Unlock()
}

// Blocked reports whether host or one of its parent domains is listed.
func (l *List) Blocked(host string) bool {
	if l == nil {
		return false
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")

	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.hosts) == 0 {
		return false
	}
	for host != "" {
		if l.hosts[host] {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return false
}

// Len returns the number of listed hosts.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.hosts)
}
