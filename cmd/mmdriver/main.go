// Command mmdriver replays malloc-lab allocation traces against the
// segregated-fit allocator and reports utilisation and throughput.
package main

func main() {
	execute()
}
