// Package socks5 implements the server side of the SOCKS5 subset carried
// through the tunnel.
//
// It decodes CONNECT destinations (IPv4 and domain names; IPv6 is recognized
// but rejected), drives the greeting/request exchange as an explicit state
// machine and encodes the two fixed replies the tunnel server ever sends.
// Wire constants and reply encoding come from github.com/txthinking/socks5.
//
// Failures never produce a SOCKS reply: callers are expected to close the
// connection, which is all a client observes.
package socks5
