// Package fake
// Author: momentics <momentics@gmail.com>

package fake

import "sync/atomic"

// Notifier counts write-interest requests.
type Notifier struct {
	arms atomic.Int64
	Err  error
}

// ArmWrite implements channel.Notifier.
func (n *Notifier) ArmWrite() error {
	n.arms.Add(1)
	return n.Err
}

// Arms returns how many times ArmWrite ran.
func (n *Notifier) Arms() int { return int(n.arms.Load()) }
