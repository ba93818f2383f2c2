package main

import "fmt"

// ViewMode is either the full queue or the tasks of one array job.
type ViewMode struct {
	arrayID string
}

// AllJobs is the default view of every queued job with arrays collapsed.
var AllJobs = ViewMode{}

// ArrayJobDetails lists the individual tasks of one array job.
func ArrayJobDetails(arrayID string) ViewMode {
	return ViewMode{arrayID: arrayID}
}

// ArrayID returns the drilled-into array id and whether the mode is a
// details view.
func (v ViewMode) ArrayID() (string, bool) {
	return v.arrayID, v.arrayID != ""
}

func (v ViewMode) String() string {
	if id, ok := v.ArrayID(); ok {
		return "array " + id
	}
	return "all jobs"
}

// DisplayJob is a row of the job list: a job, an array task, or a whole
// array job collapsed into one row.
type DisplayJob struct {
	Job
	IsArray   bool
	TaskCount int
}

// EffectiveID is the id used for cancelling and for display.
func (d DisplayJob) EffectiveID() string {
	if d.IsArray {
		return fmt.Sprintf("%s_[1-%d]", d.ArrayID, d.TaskCount)
	}
	return d.ID()
}

// ListID is the id shown in the job list column.
func (d DisplayJob) ListID() string {
	if d.IsArray {
		return fmt.Sprintf("%s [%d]", d.ArrayID, d.TaskCount)
	}
	return d.ID()
}

// Project derives the rows shown for mode. In AllJobs standalone jobs keep
// their order and are followed by one row per array job in first-seen order.
func Project(jobs []Job, mode ViewMode) []DisplayJob {
	if arrayID, ok := mode.ArrayID(); ok {
		rows := make([]DisplayJob, 0)
		for _, j := range jobs {
			if j.ArrayID == arrayID && j.IsArrayTask() {
				rows = append(rows, DisplayJob{Job: j})
			}
		}
		return rows
	}

	rows := make([]DisplayJob, 0, len(jobs))
	groups := make(map[string]int)
	var collapsed []DisplayJob
	for _, j := range jobs {
		if !j.IsArrayTask() {
			rows = append(rows, DisplayJob{Job: j})
			continue
		}
		idx, seen := groups[j.ArrayID]
		if !seen {
			idx = len(collapsed)
			groups[j.ArrayID] = idx
			collapsed = append(collapsed, DisplayJob{Job: j, IsArray: true})
		}
		collapsed[idx].TaskCount++
	}
	return append(rows, collapsed...)
}

// jobStats counts jobs by coarse state for the header chips.
type jobStats struct {
	total, running, pending, other int
}

func collectJobStats(jobs []Job) jobStats {
	var s jobStats
	s.total = len(jobs)
	for _, j := range jobs {
		switch {
		case j.IsRunning():
			s.running++
		case j.IsPending():
			s.pending++
		default:
			s.other++
		}
	}
	return s
}
