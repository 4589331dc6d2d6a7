// Package printing turns label fields into printer documents and drives them
// through a printer.
//
// This package contains:
//   - ZPLRenderer, which fills the fixed RFID label template
//   - Rasterizer, which previews a document through the Labelary service
//   - Transport with CUPS and simulated backends, selected by SelectTransport
//   - Monitor, which polls a submitted job until it is terminal
//
// Example usage:
//
//	transport, err := SelectTransport(TransportConfig{Backend: BackendAuto})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	doc := NewZPLRenderer().Render(fields)
//	job, err := transport.Submit(ctx, "ZD621", []byte(doc))
//	if err != nil {
//	    return err
//	}
//	state := NewMonitor(transport, nil).Await(ctx, job)
package printing
