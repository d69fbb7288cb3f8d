package viewer

import (
	"sync"

	"pdf-viewer/internal/domain"
)

// State is the viewer-wide state: current page, active tool and the scroll
// lock held while a stroke is drawn.
type State struct {
	mu          sync.Mutex
	currentPage int
	tool        domain.ToolMode
	scrollLock  bool
}

// NewState creates the state for a fresh viewer
func NewState() *State {
	return &State{currentPage: 1, tool: domain.ToolNone}
}

func (s *State) CurrentPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPage
}

func (s *State) SetCurrentPage(page int) {
	s.mu.Lock()
	s.currentPage = page
	s.mu.Unlock()
}

func (s *State) Tool() domain.ToolMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// SelectTool activates mode, deactivating any other tool. Selecting the
// active tool again turns drawing off. It returns the resulting mode.
func (s *State) SelectTool(mode domain.ToolMode) domain.ToolMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !mode.Valid() || mode == s.tool {
		s.tool = domain.ToolNone
	} else {
		s.tool = mode
	}
	return s.tool
}

func (s *State) ScrollLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollLock
}

func (s *State) SetScrollLock(locked bool) {
	s.mu.Lock()
	s.scrollLock = locked
	s.mu.Unlock()
}

// Reset returns the state to its initial values for a newly opened document.
func (s *State) Reset() {
	s.mu.Lock()
	s.currentPage = 1
	s.scrollLock = false
	s.mu.Unlock()
}
