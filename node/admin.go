// Admin read surface: GET /tags, GET /vols, GET /diskspace. This is
// additive visibility over the logical get_tags/get_vols/get_diskspace
// requests; it does not touch the put/get blob listener boundary, which
// remains an external collaborator.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package node

import (
	"strconv"
	"strings"

	"github.com/tinylib/msgp/msgp"
	"github.com/valyala/fasthttp"
)

const msgpackContentType = "application/msgpack"

// AdminServer serves the read-only admin surface over fasthttp.
type AdminServer struct {
	coord *Coordinator
	srv   *fasthttp.Server
}

func NewAdminServer(coord *Coordinator) *AdminServer {
	a := &AdminServer{coord: coord}
	a.srv = &fasthttp.Server{Handler: a.handle, Name: "ddfsnode-admin"}
	return a
}

// ListenAndServe blocks serving the admin surface on addr.
func (a *AdminServer) ListenAndServe(addr string) error {
	return a.srv.ListenAndServe(addr)
}

func (a *AdminServer) Shutdown() error { return a.srv.Shutdown() }

func (a *AdminServer) handle(ctx *fastrequestctx) {
	msgpack := wantsMsgpack(ctx)
	switch string(ctx.Path()) {
	case "/tags":
		a.writeTags(ctx, msgpack)
	case "/vols":
		a.writeVols(ctx, msgpack)
	case "/diskspace":
		a.writeDiskspace(ctx, msgpack)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

// fastrequestctx names the fasthttp type locally so the rest of this file
// reads a little less like a vendor import list.
type fastrequestctx = fasthttp.RequestCtx

func wantsMsgpack(ctx *fastrequestctx) bool {
	return strings.Contains(string(ctx.Request.Header.Peek("Accept")), msgpackContentType)
}

func (a *AdminServer) writeTags(ctx *fastrequestctx, msgpack bool) {
	tags := a.coord.GetTags()
	if !msgpack {
		writeJSONStringArray(ctx, tags)
		return
	}
	ctx.SetContentType(msgpackContentType)
	w := msgp.NewWriter(ctx)
	_ = w.WriteArrayHeader(uint32(len(tags)))
	for _, t := range tags {
		_ = w.WriteString(t)
	}
	_ = w.Flush()
}

func (a *AdminServer) writeVols(ctx *fastrequestctx, msgpack bool) {
	snap := a.coord.GetVols()
	if !msgpack {
		var b strings.Builder
		b.WriteString(`{"root":"`)
		b.WriteString(snap.DdfsRoot)
		b.WriteString(`","volumes":[`)
		for i, v := range snap.Volumes {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(`{"name":"`)
			b.WriteString(v.Name)
			b.WriteString(`","free":`)
			b.WriteString(strconv.FormatUint(v.Free, 10))
			b.WriteString(`,"used":`)
			b.WriteString(strconv.FormatUint(v.Used, 10))
			b.WriteByte('}')
		}
		b.WriteString(`]}`)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(b.String())
		return
	}
	ctx.SetContentType(msgpackContentType)
	w := msgp.NewWriter(ctx)
	_ = w.WriteMapHeader(2)
	_ = w.WriteString("root")
	_ = w.WriteString(snap.DdfsRoot)
	_ = w.WriteString("volumes")
	_ = w.WriteArrayHeader(uint32(len(snap.Volumes)))
	for _, v := range snap.Volumes {
		_ = w.WriteMapHeader(3)
		_ = w.WriteString("name")
		_ = w.WriteString(v.Name)
		_ = w.WriteString("free")
		_ = w.WriteUint64(v.Free)
		_ = w.WriteString("used")
		_ = w.WriteUint64(v.Used)
	}
	_ = w.Flush()
}

func (a *AdminServer) writeDiskspace(ctx *fastrequestctx, msgpack bool) {
	free, used := a.coord.GetDiskspace()
	if !msgpack {
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"free":` + strconv.FormatUint(free, 10) + `,"used":` + strconv.FormatUint(used, 10) + `}`)
		return
	}
	ctx.SetContentType(msgpackContentType)
	w := msgp.NewWriter(ctx)
	_ = w.WriteMapHeader(2)
	_ = w.WriteString("free")
	_ = w.WriteUint64(free)
	_ = w.WriteString("used")
	_ = w.WriteUint64(used)
	_ = w.Flush()
}

func writeJSONStringArray(ctx *fastrequestctx, items []string) {
	var b strings.Builder
	b.WriteByte('[')
	for i, s := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(s)
		b.WriteByte('"')
	}
	b.WriteByte(']')
	ctx.SetContentType("application/json")
	ctx.SetBodyString(b.String())
}
