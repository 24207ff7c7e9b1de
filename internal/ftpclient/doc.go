// Package ftpclient is a minimal FTP client used to drive a running server
// from the self-test harness. It understands exactly the command subset
// the harness exercises (USER/PASS/TYPE/MODE/PORT/PASV/RETR/STOR/APPE/
// NLST/CWD/CDUP/MKD/RMD/DELE/NOOP/QUIT) and nothing else — no TLS, no
// EPSV/EPRT, no MLSD, no REST.
package ftpclient
