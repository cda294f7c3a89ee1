package mock

import (
	"errors"
	"io"
)

// asyncRead continuously reads from the provided 'io.Reader', string-converting
// any read data and passing it through the returned channel. The channel is
// closed when the reader returns any error, 'io.EOF' included.
func asyncRead(r io.Reader) <-chan string {
	ch := make(chan string, 64)
	go func(ch chan<- string) {
		buf := make([]byte, 4096)
		defer close(ch)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				ch <- string(buf[:n])
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					log.Debug("channel read ended", "error", err)
				}
				return
			}
		}
	}(ch)
	return ch
}
