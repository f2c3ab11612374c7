package loader

// Backlog is the queue of game files not loaded yet, oldest first.
// File names sort in creation order, so the newest name ever queued
// is enough to tell new files from ones already seen.
type Backlog struct {
	files []string
	last  string
}

func NewBacklog(files []string) *Backlog {
	var b = &Backlog{}
	b.Refresh(files)
	return b
}

func (b *Backlog) Len() int {
	return len(b.files)
}

// Pop removes the oldest file.
func (b *Backlog) Pop() (string, bool) {
	if len(b.files) == 0 {
		return "", false
	}
	var filename = b.files[0]
	b.files = b.files[1:]
	if len(b.files) == 0 {
		b.files = nil
	}
	return filename, true
}

// Refresh appends files that sort after every file queued before.
// files must be sorted. It returns the number of files added.
func (b *Backlog) Refresh(files []string) int {
	var added int
	for _, filename := range files {
		if filename <= b.last {
			continue
		}
		b.last = filename
		b.files = append(b.files, filename)
		added++
	}
	return added
}
