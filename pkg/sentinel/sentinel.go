// Package sentinel supervises the annotator-server binary: it runs the
// server as a child process, watches the binary on disk, and restarts the
// child when a new build is deployed or the child crashes.
package sentinel

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// GracePeriod is the time to wait after SIGTERM before sending SIGKILL.
	GracePeriod = 10 * time.Second

	// InitialBackoff is the initial delay before restarting after an abnormal exit.
	InitialBackoff = 5 * time.Second

	// MaxBackoff is the maximum delay between restarts.
	MaxBackoff = 10 * time.Minute

	// BackoffFactor is the multiplier for each successive backoff.
	BackoffFactor = 2.0

	// SuccessRunTime is how long the child must run before backoff resets.
	SuccessRunTime = 30 * time.Second

	// DebounceInterval is the delay after an fsnotify event before checking the checksum.
	DebounceInterval = 100 * time.Millisecond
)

// Sentinel manages the lifecycle of a child process running the "serve" subcommand.
type Sentinel struct {
	binaryPath string
	lastHash   [sha256.Size]byte
	backoff    time.Duration
}

// Run starts the sentinel supervisor loop. It resolves the current executable
// path, starts a child with the "serve" subcommand, watches the binary for
// changes, and restarts the child on crash with exponential backoff. Blocks
// until SIGINT/SIGTERM is received.
func Run() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetPrefix("[sentinel] ")

	binaryPath, err := os.Executable()
	if err != nil {
		log.Fatalf("failed to resolve executable path: %v", err)
	}
	// Resolve symlinks so we watch the real file location.
	binaryPath, err = filepath.EvalSymlinks(binaryPath)
	if err != nil {
		log.Fatalf("failed to resolve symlinks for binary: %v", err)
	}

	log.Printf("starting sentinel (binary: %s)", binaryPath)

	s := &Sentinel{
		binaryPath: binaryPath,
		backoff:    InitialBackoff,
	}
	s.lastHash, err = HashFile(binaryPath)
	if err != nil {
		log.Fatalf("failed to hash binary: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	updateCh := make(chan struct{}, 1)
	go s.watchBinary(updateCh)

	s.mainLoop(sigCh, updateCh)
}

func (s *Sentinel) mainLoop(sigCh <-chan os.Signal, updateCh <-chan struct{}) {
	for {
		child, err := s.startChild()
		if err != nil {
			log.Printf("failed to start child: %v", err)
			s.sleepBackoff()
			continue
		}

		startTime := time.Now()

		childDone := make(chan error, 1)
		go func() {
			childDone <- child.Wait()
		}()

		select {
		case err := <-childDone:
			elapsed := time.Since(startTime)
			if err != nil {
				log.Printf("child exited with error after %v: %v", elapsed, err)
				if elapsed >= SuccessRunTime {
					s.backoff = InitialBackoff
				}
				s.sleepBackoff()
			} else {
				// The serve subcommand normally runs forever, so a clean
				// exit is unexpected and warrants a restart.
				log.Printf("child exited cleanly after %v", elapsed)
				s.backoff = InitialBackoff
				time.Sleep(1 * time.Second)
			}

		case <-updateCh:
			log.Println("binary update detected, restarting child...")
			s.stopChild(child)
			<-childDone
			if h, err := HashFile(s.binaryPath); err == nil {
				s.lastHash = h
			}
			s.backoff = InitialBackoff

		case sig := <-sigCh:
			log.Printf("received %v, forwarding to child and shutting down...", sig)
			s.stopChild(child)
			<-childDone
			log.Println("sentinel exiting")
			return
		}
	}
}

func (s *Sentinel) startChild() (*exec.Cmd, error) {
	cmd := exec.Command(s.binaryPath, "serve")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// Child inherits env vars (ANNOTATOR_*).
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("exec %s serve: %w", s.binaryPath, err)
	}

	log.Printf("started child process (pid: %d)", cmd.Process.Pid)
	return cmd, nil
}

// stopChild sends SIGTERM and schedules a SIGKILL after the grace period.
// It does NOT call cmd.Wait(); the caller drains childDone.
func (s *Sentinel) stopChild(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}

	pid := cmd.Process.Pid
	log.Printf("sending SIGTERM to child (pid: %d)", pid)
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		log.Printf("failed to send SIGTERM (process may have already exited): %v", err)
		return
	}

	go func() {
		time.Sleep(GracePeriod)
		if err := cmd.Process.Signal(syscall.Signal(0)); err == nil {
			log.Printf("grace period expired, sending SIGKILL to child (pid: %d)", pid)
			if err := cmd.Process.Kill(); err != nil {
				log.Printf("failed to send SIGKILL: %v", err)
			}
		}
	}()
}

// watchBinary watches the parent directory of the binary for filesystem
// events. Watching the directory instead of the file catches atomic deploys
// (write temp file, rename) that change the inode. An update is only reported
// when the SHA256 checksum actually changed.
func (s *Sentinel) watchBinary(updateCh chan<- struct{}) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("failed to create fsnotify watcher: %v", err)
		return
	}
	defer watcher.Close()

	watchDir := filepath.Dir(s.binaryPath)
	binaryName := filepath.Base(s.binaryPath)

	if err := watcher.Add(watchDir); err != nil {
		log.Printf("failed to watch directory %s: %v", watchDir, err)
		return
	}
	log.Printf("watching directory %s for changes to %s", watchDir, binaryName)

	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != binaryName {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(DebounceInterval, func() {
				h, err := HashFile(s.binaryPath)
				if err != nil {
					log.Printf("failed to hash binary after update event: %v", err)
					return
				}
				if h == s.lastHash {
					return
				}
				select {
				case updateCh <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("fsnotify error: %v", err)
		}
	}
}

func (s *Sentinel) sleepBackoff() {
	log.Printf("waiting %v before restart", s.backoff)
	time.Sleep(s.backoff)
	next := time.Duration(float64(s.backoff) * BackoffFactor)
	if next > MaxBackoff {
		next = MaxBackoff
	}
	s.backoff = next
}

// HashFile computes the SHA256 checksum of the file at path.
func HashFile(path string) ([sha256.Size]byte, error) {
	var sum [sha256.Size]byte
	f, err := os.Open(path)
	if err != nil {
		return sum, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return sum, err
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}
