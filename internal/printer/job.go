package printer

// CommandKind enumerates the job vocabulary the transport accepts.
type CommandKind int

const (
	// CmdLine prints one line of text.
	CmdLine CommandKind = iota
	// CmdFeed advances the paper one blank line.
	CmdFeed
	// CmdCut triggers a partial cut.
	CmdCut
	// CmdDrawerKick pulses the cash drawer solenoid on pin 2.
	CmdDrawerKick
)

type Command struct {
	Kind CommandKind
	Text string
}

// Job is an ordered sequence of print commands.
type Job struct {
	Commands []Command
}

func (j *Job) Line(text string) {
	j.Commands = append(j.Commands, Command{Kind: CmdLine, Text: text})
}

func (j *Job) Feed() {
	j.Commands = append(j.Commands, Command{Kind: CmdFeed})
}

func (j *Job) Cut() {
	j.Commands = append(j.Commands, Command{Kind: CmdCut})
}

func (j *Job) DrawerKick() {
	j.Commands = append(j.Commands, Command{Kind: CmdDrawerKick})
}

// Text renders the job as plain lines, used for previews and tests.
func (j Job) Text() string {
	var out []byte
	for _, cmd := range j.Commands {
		switch cmd.Kind {
		case CmdLine:
			out = append(out, cmd.Text...)
			out = append(out, '\n')
		case CmdFeed:
			out = append(out, '\n')
		}
	}
	return string(out)
}

// ESC/POS control sequences. The encoding mirrors what the printer bridge
// expects: initialize, text lines, then cut.
var (
	escposInit       = []byte{0x1b, 0x40}
	escposCut        = []byte{0x1d, 0x56, 0x41, 0x10}
	escposDrawerKick = []byte{0x1b, 0x70, 0x00, 0x19, 0xfa}
)

// Encode serializes the job to ESC/POS bytes.
func (j Job) Encode() []byte {
	payload := make([]byte, 0, 64)
	payload = append(payload, escposInit...)
	for _, cmd := range j.Commands {
		switch cmd.Kind {
		case CmdLine:
			payload = append(payload, []byte(cmd.Text)...)
			payload = append(payload, '\n')
		case CmdFeed:
			payload = append(payload, '\n')
		case CmdCut:
			payload = append(payload, escposCut...)
		case CmdDrawerKick:
			payload = append(payload, escposDrawerKick...)
		}
	}
	return payload
}

// DrawerKickJob is a one-command job that opens the cash drawer.
func DrawerKickJob() Job {
	var job Job
	job.DrawerKick()
	return job
}
