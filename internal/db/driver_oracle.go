//go:build oracle
// +build oracle

package db

import _ "github.com/godror/godror"
