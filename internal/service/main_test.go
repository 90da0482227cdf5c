// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"os"
	"os/signal"
	"testing"
)

// TestMain starts the runtime's os/signal goroutines outside of any synctest bubble. Otherwise the
// first signal.Notify call happens inside a bubble and the runtime aborts with "select on synctest
// channel from outside bubble".
func TestMain(m *testing.M) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, clickSignals...)
	signal.Stop(c)
	os.Exit(m.Run())
}
