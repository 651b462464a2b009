// readiness.go - Readiness probe logic for the pharma node
package server

// NodeReadiness returns true if the store is up and the ledger node
// answers reads. A node that cannot reach the ledger still serves
// verification, but should not receive lifecycle traffic.
func (s *Server) NodeReadiness() bool {
	metrics := s.GetNodeMetrics()
	return s.NodeLiveness() && metrics.LedgerReachable
}
