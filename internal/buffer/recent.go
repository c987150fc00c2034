package buffer

// recentList is a bounded most-recently-used list of file paths.
type recentList struct {
	paths []string
	max   int
}

// touch moves the path to the front, inserting it if absent and
// dropping the oldest past the bound.
func (r *recentList) touch(path string) {
	if r.max <= 0 {
		return
	}
	for i, p := range r.paths {
		if p == path {
			copy(r.paths[1:i+1], r.paths[:i])
			r.paths[0] = path
			return
		}
	}
	r.paths = append([]string{path}, r.paths...)
	if len(r.paths) > r.max {
		r.paths = r.paths[:r.max]
	}
}

// seed replaces the contents, newest first, trimming to the bound.
func (r *recentList) seed(paths []string) {
	if r.max <= 0 || len(paths) == 0 {
		return
	}
	n := min(len(paths), r.max)
	r.paths = make([]string, n)
	copy(r.paths, paths[:n])
}

// list returns a copy, most recent first.
func (r *recentList) list() []string {
	out := make([]string, len(r.paths))
	copy(out, r.paths)
	return out
}
