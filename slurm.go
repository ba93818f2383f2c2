package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Job is one squeue row: a standalone job or a single array task.
type Job struct {
	JobID        string
	ArrayID      string
	ArrayStep    string // empty unless the job is an array task
	Name         string
	Status       string
	StateCompact string
	Reason       string
	User         string
	Time         string
	TimeLeft     string
	TRES         string
	Partition    string
	NodeList     string
	Stdout       string
	Stderr       string
	Command      string
	WorkDir      string
}

// IsArrayTask reports whether the job carries an array task index.
func (j Job) IsArrayTask() bool {
	return j.ArrayStep != ""
}

// ID returns "<array>_<task>" for array tasks and the job id otherwise.
func (j Job) ID() string {
	if j.IsArrayTask() {
		return j.ArrayID + "_" + j.ArrayStep
	}
	return j.JobID
}

// State returns the short state code (R, PD, etc.)
func (j Job) State() string {
	if code := strings.TrimSpace(j.StateCompact); code != "" {
		return strings.ToUpper(code)
	}
	return StateCode(j.Status)
}

// IsRunning checks if the job is in a running state
func (j Job) IsRunning() bool {
	s := j.State()
	return s == "R" || s == "CG"
}

// IsPending checks if the job is in a pending state
func (j Job) IsPending() bool {
	s := j.State()
	return s == "PD" || s == "CF" || s == "PR" || s == "RQ" || s == "RS" || s == "S" || s == "ST" || s == "RH" || s == "RF"
}

var statusAliases = map[string]string{
	"RUNNING":       "R",
	"COMPLETING":    "CG",
	"CONFIGURING":   "CF",
	"PENDING":       "PD",
	"PREEMPTED":     "PR",
	"REQUEUED":      "RQ",
	"REQUEUE_HOLD":  "RH",
	"REQUEUE_FED":   "RF",
	"RESIZING":      "RS",
	"SUSPENDED":     "S",
	"STOPPED":       "ST",
	"PP":            "PD", // Handle 'pp' as pending
	"COMPLETED":     "CD",
	"CANCELLED":     "CA",
	"FAILED":        "F",
	"TIMEOUT":       "TO",
	"NODE_FAIL":     "NF",
	"OUT_OF_MEMORY": "OOM",
}

// StateCode converts full status to short code
func StateCode(status string) string {
	text := strings.ToUpper(strings.TrimSpace(status))
	if text == "" {
		return ""
	}
	text = strings.TrimRight(text, "*+")

	if alias, ok := statusAliases[text]; ok {
		return alias
	}

	// "CANCELLED by 4840" and friends: the first word carries the state.
	parts := strings.Fields(text)
	if len(parts) > 1 {
		if alias, ok := statusAliases[parts[0]]; ok {
			return alias
		}
	}

	return text
}

func CurrentUser() string {
	u, err := user.Current()
	if err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

// DefaultSqueueArgs limits the queue to the current user's jobs.
func DefaultSqueueArgs() []string {
	if name := CurrentUser(); name != "" {
		return []string{"--user", name}
	}
	return []string{"--me"}
}

func RunCommand(ctx context.Context, args []string, timeout time.Duration) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("empty command")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("command timed out after %s: %v, stderr: %s", timeout, err, strings.TrimSpace(stderr.String()))
	}
	if err != nil {
		return "", fmt.Errorf("command failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

const (
	squeueFieldSep = "###jobtail###"
	squeueTimeout  = 10 * time.Second
)

// squeueFields is the --Format column order parseSqueue expects.
var squeueFields = []string{
	"JobID",
	"ArrayJobID",
	"ArrayTaskID",
	"Name",
	"State",
	"StateCompact",
	"Reason",
	"UserName",
	"TimeUsed",
	"TimeLeft",
	"tres-alloc",
	"Partition",
	"NodeList",
	"STDOUT",
	"STDERR",
	"Command",
	"WorkDir",
}

func squeueFormat() string {
	cols := make([]string, len(squeueFields))
	for i, f := range squeueFields {
		cols[i] = f + ":" + squeueFieldSep
	}
	return strings.Join(cols, ",")
}

// SqueueCommand builds the full squeue invocation for the given query args.
func SqueueCommand(args []string) []string {
	cmd := []string{"squeue"}
	cmd = append(cmd, args...)
	return append(cmd, "--array", "--noheader", "--Format", squeueFormat())
}

// FetchJobsSqueue runs squeue with the given query args and parses the rows.
func FetchJobsSqueue(ctx context.Context, args []string) ([]Job, error) {
	out, err := RunCommand(ctx, SqueueCommand(args), squeueTimeout)
	if err != nil {
		return nil, fmt.Errorf("squeue: %w", err)
	}
	return parseSqueue(out), nil
}

func parseSqueue(output string) []Job {
	var jobs []Job
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, squeueFieldSep)
		if len(parts) < len(squeueFields) {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		job := Job{
			JobID:        parts[0],
			ArrayID:      parts[1],
			Name:         parts[3],
			Status:       parts[4],
			StateCompact: parts[5],
			User:         parts[7],
			Time:         parts[8],
			TimeLeft:     parts[9],
			TRES:         parts[10],
			Partition:    parts[11],
			NodeList:     parts[12],
			Command:      parts[15],
			WorkDir:      parts[16],
		}
		if step := parts[2]; step != "" && step != "N/A" {
			job.ArrayStep = step
		}
		if job.ArrayID == "" {
			job.ArrayID = job.JobID
		}
		if reason := parts[6]; reason != "" && reason != "None" {
			job.Reason = reason
		}
		job.Stdout = resolveOutputPath(parts[13], job)
		job.Stderr = resolveOutputPath(parts[14], job)
		jobs = append(jobs, job)
	}
	return jobs
}

// resolveOutputPath expands sbatch filename patterns and anchors relative
// paths at the job's working directory.
func resolveOutputPath(pattern string, job Job) string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || pattern == "N/A" || pattern == "(null)" {
		return ""
	}

	value := expandFilenamePattern(pattern, job)
	if !filepath.IsAbs(value) && job.WorkDir != "" {
		value = filepath.Join(job.WorkDir, value)
	}
	return value
}

func expandFilenamePattern(pattern string, job Job) string {
	arrayStep := job.ArrayStep
	if arrayStep == "" {
		arrayStep = "4294967294" // NO_VAL, what sbatch writes for %a outside arrays
	}
	host := job.NodeList
	if idx := strings.IndexAny(host, ",["); idx != -1 {
		host = host[:idx]
	}

	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' || i+1 >= len(pattern) {
			b.WriteByte(c)
			continue
		}

		j := i + 1
		for j < len(pattern) && pattern[j] >= '0' && pattern[j] <= '9' {
			j++
		}
		if j >= len(pattern) {
			b.WriteString(pattern[i:])
			break
		}
		width, _ := strconv.Atoi(pattern[i+1 : j])

		var value string
		switch pattern[j] {
		case '%':
			value = "%"
		case 'A':
			value = job.ArrayID
		case 'a':
			value = arrayStep
		case 'j':
			value = job.JobID
		case 'J':
			value = job.JobID + ".batch"
		case 'N':
			value = host
		case 'n', 't':
			value = "0"
		case 's':
			value = "batch"
		case 'u':
			value = job.User
		case 'x':
			value = job.Name
		default:
			b.WriteString(pattern[i : j+1])
			i = j
			continue
		}
		if width > 0 && len(value) < width && isDigits(value) {
			value = strings.Repeat("0", width-len(value)) + value
		}
		b.WriteString(value)
		i = j
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CancelJob starts scancel for the id and returns without waiting for it.
// Only a failure to launch the command is reported.
func CancelJob(id string) error {
	cmd := exec.Command("scancel", id)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("scancel %s: %w", id, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
