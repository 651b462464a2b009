// liveness.go - Liveness probe logic for the pharma node
package server

// NodeLiveness returns true if the process is serving and the local
// store responds.
func (s *Server) NodeLiveness() bool {
	if s.store == nil {
		return false
	}
	_, err := s.store.Count()
	return err == nil
}
