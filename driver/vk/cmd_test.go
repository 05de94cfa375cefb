// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"testing"

	"github.com/gviegas/rayt/driver"
)

func TestCmdBuffer(t *testing.T) {
	zcb := cmdBuffer{}
	call := "tDrv.NewCmdBuffer()"
	// NewCmdBuffer.
	if cb, err := tDrv.NewCmdBuffer(); err == nil {
		if cb == nil {
			t.Errorf("%s\nhave nil, nil\nwant non-nil, nil", call)
			return
		}
		cb := cb.(*cmdBuffer)
		if cb.d != &tDrv {
			t.Errorf("%s: cb.d\nhave %p\nwant %p", call, cb.d, &tDrv)
		}
		if cb.pool == zcb.pool {
			t.Errorf("%s: cb.pool\nhave %v\nwant valid handle", call, cb.pool)
		}
		if cb.cb == nil {
			t.Errorf("%s: cb.cb\nhave nil\nwant non-nil", call)
		}
		if cb.begun {
			t.Errorf("%s: cb.begun\nhave true\nwant false", call)
		}
		// Destroy.
		cb.Destroy()
		if cb.d != nil || cb.pool != zcb.pool || cb.cb != nil {
			t.Errorf("cb.Destroy(): cb\nhave %v\nwant %v", cb, cmdBuffer{})
		}
	} else if cb != nil {
		t.Errorf("%s\nhave %p, %v\nwant nil, %v", call, cb, err, err)
	}
}

func TestCmdRecording(t *testing.T) {
	cb, err := tDrv.NewCmdBuffer()
	if err != nil {
		t.Error("NewCmdBuffer failed, cannot test command recording")
		return
	}
	defer cb.Destroy()
	src, err := tDrv.NewBuffer(1024, true, driver.UCopySrc | driver.UCopyDst)
	if err != nil {
		t.Error("NewBuffer failed, cannot test command recording")
		return
	}
	defer src.Destroy()
	dst, err := tDrv.NewBuffer(769, true, driver.UCopyDst)
	if err != nil {
		t.Error("NewBuffer failed, cannot test command recording")
		return
	}
	defer dst.Destroy()
	if err = cb.Begin(); err != nil {
		t.Errorf("(error) cb.Begin(): %v", err)
		return
	}
	cb.Fill(src, 16, 0x2a, 256)
	cb.Barrier([]driver.Barrier{
		{
			SyncBefore:   driver.SCopy,
			SyncAfter:    driver.SCopy,
			AccessBefore: driver.ACopyWrite,
			AccessAfter:  driver.ACopyRead | driver.ACopyWrite,
		},
	})
	cb.CopyBuffer(&driver.BufferCopy{
		From:    src,
		FromOff: 0,
		To:      dst,
		ToOff:   512,
		Size:    256,
	})
	err = cb.End()
	if err != nil {
		t.Errorf("(error) cb.End(): %v", err)
		return
	}
	wk := driver.WorkItem{Work: []driver.CmdBuffer{cb}}
	ch := make(chan *driver.WorkItem)
	if err = tDrv.Commit(&wk, ch); err != nil {
		t.Errorf("(error) tDrv.Commit(): %v", err)
		return
	}
	switch w := <-ch; {
	case w != &wk:
		t.Errorf("tDrv.Commit()\nhave %p\nwant %p", w, &wk)
	case w.Err != nil:
		t.Errorf("(error) wk.Err: %v", w.Err)
	default:
		for i, x := range src.Bytes()[16:272] {
			if x != 0x2a {
				t.Errorf("src.Bytes()[%d]\nhave %#x\nwant 0x2a", 16+i, x)
				break
			}
		}
		for i, x := range src.Bytes()[:256] {
			if y := dst.Bytes()[512+i]; y != x {
				t.Errorf("dst.Bytes()[%d]\nhave %#x\nwant %#x", 512+i, y, x)
				break
			}
		}
	}
	cb.Reset()
}

func TestCmdCommitEmpty(t *testing.T) {
	// Committing no work must deliver the item with a nil
	// error and touch no GPU state.
	wk := driver.WorkItem{Err: driver.ErrFatal, Custom: 42}
	ch := make(chan *driver.WorkItem)
	if err := tDrv.Commit(&wk, ch); err != nil {
		t.Errorf("(error) tDrv.Commit(): %v", err)
		return
	}
	switch w := <-ch; {
	case w != &wk:
		t.Errorf("tDrv.Commit()\nhave %p\nwant %p", w, &wk)
	case w.Err != nil:
		t.Errorf("wk.Err\nhave %v\nwant nil", w.Err)
	case w.Custom != 42:
		t.Errorf("wk.Custom\nhave %v\nwant 42", w.Custom)
	}
}

func TestCmdCommitMulti(t *testing.T) {
	const n = 3
	var cbs [n]driver.CmdBuffer
	var bufs [n]driver.Buffer
	for i := 0; i < n; i++ {
		cb, err := tDrv.NewCmdBuffer()
		if err != nil {
			t.Error("NewCmdBuffer failed, cannot test commit")
			return
		}
		defer cb.Destroy()
		buf, err := tDrv.NewBuffer(256, true, driver.UCopyDst)
		if err != nil {
			t.Error("NewBuffer failed, cannot test commit")
			return
		}
		defer buf.Destroy()
		if err = cb.Begin(); err != nil {
			t.Errorf("(error) cb.Begin(): %v", err)
			return
		}
		cb.Fill(buf, 0, byte(i+1), 256)
		if err = cb.End(); err != nil {
			t.Errorf("(error) cb.End(): %v", err)
			return
		}
		cbs[i] = cb
		bufs[i] = buf
	}
	wk := driver.WorkItem{Work: cbs[:]}
	ch := make(chan *driver.WorkItem)
	if err := tDrv.Commit(&wk, ch); err != nil {
		t.Errorf("(error) tDrv.Commit(): %v", err)
		return
	}
	if w := <-ch; w.Err != nil {
		t.Errorf("(error) wk.Err: %v", w.Err)
		return
	}
	for i := range bufs {
		for j, x := range bufs[i].Bytes() {
			if x != byte(i+1) {
				t.Errorf("bufs[%d].Bytes()[%d]\nhave %#x\nwant %#x", i, j, x, byte(i+1))
				break
			}
		}
	}
}
