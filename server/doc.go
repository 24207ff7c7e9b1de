// Package server implements an FTP server covering the login, directory,
// and file-transfer commands of RFC 959, including all three transfer
// modes (Stream, Block, Compressed).
//
// # Overview
//
// A Server accepts connections and runs one session per connection. Each
// session authenticates via a Driver, which hands back a ClientContext
// scoped to that user's jailed view of the filesystem.
//
// # Getting Started
//
//	package main
//
//	import (
//	    "log"
//
//	    "github.com/arnegrim/goftpd/server"
//	)
//
//	func main() {
//	    driver, err := server.NewFSDriver("/srv/ftp", nil, true)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    s, err := server.NewServer(":2121", server.WithDriver(driver))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    log.Fatal(s.ListenAndServe())
//	}
//
// # Scope
//
// Supported commands: USER, PASS, SYST, TYPE, STRU, MODE, PORT, PASV,
// RETR, STOR, APPE, NLST, CWD, CDUP, MKD, RMD, DELE, NOOP, QUIT. Once
// logged in, every unrecognized verb gets "500 Unknown command"; before
// login, every verb other than USER, PASS and QUIT gets "530 Not logged in".
//
// Not supported: TLS/FTPS, EPSV/EPRT, MLSD/MLST, REST, RNFR/RNTO, SIZE,
// MDTM, and ASCII newline translation (TYPE A behaves identically to
// TYPE I). See the PASV doc comment on handlePASV for how passive-mode
// addressing is simplified relative to a production server.
package server
