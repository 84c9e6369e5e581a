package user

// Programs are the user programs the kernel can boot, by name.
var Programs = map[string]Main{
	"pingpong": Pingpong,
	"sleep":    Sleep,
	"uptime":   Uptime,
}

// Pingpong bounces one byte from parent to child and back over two pipes.
func Pingpong(u *Proc, argv []string) int {
	p1, r1 := u.Pipe() // parent -> child
	p2, r2 := u.Pipe() // child -> parent
	if r1 < 0 || r2 < 0 {
		u.Fprintf(2, "pipe failed\n")
		u.Exit(1)
	}

	pid := u.Fork(func(u *Proc) int {
		u.Close(p1[1])
		u.Close(p2[0])

		buf, _ := u.Read(p1[0], 1)
		u.Printf("%d: received ping\n", u.Getpid())
		u.Write(p2[1], buf)

		u.Close(p1[0])
		u.Close(p2[1])
		u.Exit(0)
		return 0
	})
	if pid < 0 {
		u.Printf("fork failed\n")
		u.Exit(1)
	}

	u.Close(p1[0])
	u.Close(p2[1])

	u.Write(p1[1], []byte(" "))
	u.Read(p2[0], 1)
	u.Printf("%d: received pong\n", u.Getpid())

	u.Close(p1[1])
	u.Close(p2[0])
	u.Exit(0)
	return 0
}

// Sleep sleeps for each argument's worth of ticks in turn.
func Sleep(u *Proc, argv []string) int {
	if len(argv) < 2 {
		u.Fprintf(2, "Usage: sleep <ticks>\n")
		u.Exit(1)
	}

	for _, arg := range argv[1:] {
		n := Atoi(arg)

		u.Printf("Sleeping...%d ticks.\n", n)

		if u.Sleep(n) < 0 {
			u.Fprintf(2, "sleep: %s failed\n", arg)
			break
		}
	}

	u.Exit(0)
	return 0
}

// Uptime checks that sleeping 5 ticks moves the clock by at least 5.
func Uptime(u *Proc, argv []string) int {
	before := u.Uptime()

	if u.Sleep(5) < 0 {
		u.Fprintf(2, "uptime: sleep failed\n")
		u.Exit(1)
	}

	after := u.Uptime()

	u.Printf("uptime: %d -> %d\n", before, after)

	if after < before+5 {
		u.Fprintf(2, "uptime: clock moved only %d ticks\n", after-before)
		u.Exit(1)
	}

	u.Exit(0)
	return 0
}
