package relay

import "io"

// CopyResponse relays bytes from the upstream connection to the client one
// bounded chunk at a time, with no reframing. It stops on end-of-stream
// (success), a read or write error, or a short write. Returns the bytes
// delivered to dst.
func CopyResponse(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	var total int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			total += int64(wn)
			if werr != nil {
				return total, werr
			}
			if wn < n {
				return total, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}
