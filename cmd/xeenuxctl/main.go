// Command xeenuxctl is a terminal client for the Xeenux backend. It keeps
// one signed-in session in a local sqlite file and refreshes its token the
// same way the portal does.
package main

func main() {
	Execute()
}
