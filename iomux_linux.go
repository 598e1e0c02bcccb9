package serial

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// eventfdSignal implements cancelSignal with a Linux eventfd joined into the
// worker's epoll set.
type eventfdSignal struct {
	fd   int
	once sync.Once
}

func newCancelSignal() (cancelSignal, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	return &eventfdSignal{fd: fd}, nil
}

func (s *eventfdSignal) fire() {
	s.once.Do(func() {
		var one [8]byte
		one[7] = 1
		unix.Write(s.fd, one[:])
	})
}

func (s *eventfdSignal) sleep(timeoutMs int) (bool, error) {
	for {
		pfd := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(pfd, timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("poll cancel fd: %w", err)
		}
		return n > 0 && pfd[0].Revents&unix.POLLIN != 0, nil
	}
}

func (s *eventfdSignal) readFd() int { return s.fd }

func (s *eventfdSignal) close() error {
	return unix.Close(s.fd)
}

// epollMux waits for readability on a port descriptor and a cancellation
// eventfd through one epoll instance.
type epollMux struct {
	epfd     int
	portFd   int
	cancelFd int
}

func newIOMultiplexer(portFd int, cancel cancelSignal) (ioMultiplexer, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}

	portEv := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(portFd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, portFd, &portEv); err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll_ctl add port fd: %w", err)
	}

	cancelEv := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(cancel.readFd())}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, cancel.readFd(), &cancelEv); err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll_ctl add cancel fd: %w", err)
	}

	return &epollMux{epfd: epfd, portFd: portFd, cancelFd: cancel.readFd()}, nil
}

func (m *epollMux) wait(timeoutMs int) (muxEvent, error) {
	var events [4]unix.EpollEvent
	for {
		n, err := unix.EpollWait(m.epfd, events[:], timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return muxTimeout, fmt.Errorf("epoll_wait: %w", err)
		}
		if n == 0 {
			return muxTimeout, nil
		}

		// Cancellation wins over readiness when both are pending.
		for i := 0; i < n; i++ {
			if int(events[i].Fd) == m.cancelFd {
				return muxCancelled, nil
			}
		}
		for i := 0; i < n; i++ {
			if int(events[i].Fd) != m.portFd {
				continue
			}
			if events[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				return muxHangup, nil
			}
			if events[i].Events&unix.EPOLLIN != 0 {
				return muxReadable, nil
			}
		}
		// Spurious wakeup, go back to waiting.
		if timeoutMs == 0 {
			return muxTimeout, nil
		}
	}
}

func (m *epollMux) close() error {
	return unix.Close(m.epfd)
}
