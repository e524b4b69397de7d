// Package module defines the contract between the system manager and the
// subsystems it orchestrates.
//
// A module is an opaque handle with Start and Stop; the manager never looks
// inside. Modules that drive a synchronous render loop additionally
// implement Renderer.
//
// # Writing a module
//
// Wrap the real subsystem in a thin adapter:
//
//	type cameraModule struct {
//	    cam *capture.Camera
//	}
//
//	func (m *cameraModule) Start() error { return m.cam.Open() }
//
//	func (m *cameraModule) Stop(timeout time.Duration) error {
//	    return m.cam.CloseWithin(timeout)
//	}
//
// Report failure through the error return. Panics during Start or Stop are
// recovered by the manager and treated as failures, but an explicit error
// is the expected path.
package module
