package main

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// A one-shot client: send a single request datagram to a running
// server and print the reply. Mostly useful for poking at a server by
// hand, e.g.
//
//	mfsclient localhost 10000 creat 0 1 hello
//	mfsclient localhost 10000 lookup 0 hello

const maxPacketSize = 8192
const replyTimeout = 5 * time.Second

func main() {
	if len(os.Args) < 4 {
		fmt.Fprintf(
			os.Stderr,
			"Send one request datagram to a server and print the reply.\nUsage: %s host port command [args...]\n",
			os.Args[0])
		os.Exit(1)
	}

	host := os.Args[1]
	port := os.Args[2]
	request := strings.Join(os.Args[3:], " ")

	conn, err := net.Dial("udp", net.JoinHostPort(host, port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open socket: %s\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	if _, err = conn.Write([]byte(request)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to send request: %s\n", err)
		os.Exit(2)
	}

	conn.SetReadDeadline(time.Now().Add(replyTimeout))
	reply := make([]byte, maxPacketSize)
	n, err := conn.Read(reply)
	if err != nil {
		fmt.Fprintf(os.Stderr, "No reply: %s\n", err)
		os.Exit(2)
	}

	os.Stdout.Write(reply[:n])
	fmt.Println()
}
