package browser

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/resume-builder/internal/rendering"
)

// hostID is the id of the element that holds the export clone.
const hostID = "resume-export-host"

func jsString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func heightScript(selector string) string {
	return fmt.Sprintf(`(() => {
  const root = document.querySelector(%s);
  if (!root) { throw new Error("root element not found"); }
  return Math.max(root.scrollHeight, root.getBoundingClientRect().height);
})()`, jsString(selector))
}

// mountScript clones the root into a host pinned to the page origin, undoes any
// preview scaling, drops preview-only elements and pads the bottom. It returns the
// host's top offset in page coordinates.
func mountScript(selector string, widthPx, paddingPx float64) string {
	return fmt.Sprintf(`(() => {
  const root = document.querySelector(%[1]s);
  if (!root) { throw new Error("root element not found"); }
  const old = document.getElementById(%[2]s);
  if (old) { old.remove(); }

  const host = document.createElement("div");
  host.id = %[2]s;
  host.style.cssText = "position:absolute;left:0;top:0;margin:0;padding:0;z-index:2147483647;background:#ffffff;width:%[3]gpx;";

  const clone = root.cloneNode(true);
  clone.querySelectorAll("[%[4]s]").forEach((n) => n.remove());
  clone.style.transform = "none";
  clone.style.width = "%[3]gpx";
  clone.style.maxWidth = "none";
  const pad = parseFloat(getComputedStyle(root).paddingBottom) || 0;
  clone.style.paddingBottom = (pad + %[5]g) + "px";

  host.appendChild(clone);
  document.body.appendChild(host);
  return host.getBoundingClientRect().top + window.scrollY;
})()`, jsString(selector), jsString(hostID), widthPx, rendering.ExportIgnoreAttr, paddingPx)
}

// cloneHeightScript measures the clone inside the host, minus the export padding.
func cloneHeightScript(paddingPx float64) string {
	return fmt.Sprintf(`(() => {
  const host = document.getElementById(%[1]s);
  if (!host || !host.firstElementChild) { throw new Error("export clone not mounted"); }
  const clone = host.firstElementChild;
  const height = Math.max(clone.scrollHeight, clone.getBoundingClientRect().height);
  return Math.max(0, height - %[2]g);
})()`, jsString(hostID), paddingPx)
}

// nudgeScript pushes elements away from page boundaries inside the host. An element
// crossing a boundary gets top margin moving it onto the next page; an element ending
// just above a boundary gets bottom margin so its successor starts on the next page.
// Offsets are processed in order because every move shifts the content below it.
func nudgeScript(offsets []float64, windowPx, marginPx float64, selectors []string) string {
	return fmt.Sprintf(`(() => {
  const offsets = %s, windowPx = %g, marginPx = %g, selectors = %s;
  const host = document.getElementById(%s);
  if (!host) { throw new Error("export host not mounted"); }
  const nodes = Array.from(host.querySelectorAll(selectors.join(",")));
  let moved = 0;
  for (const offset of offsets) {
    const top0 = host.getBoundingClientRect().top;
    for (const el of nodes) {
      const r = el.getBoundingClientRect();
      const top = r.top - top0, bottom = r.bottom - top0;
      if (top < offset && bottom > offset && r.height < windowPx * 4) {
        const cs = getComputedStyle(el);
        el.style.marginTop = ((parseFloat(cs.marginTop) || 0) + (offset - top) + 2) + "px";
        moved++;
        break;
      }
      if (bottom <= offset && bottom > offset - windowPx && el.nextElementSibling) {
        const cs = getComputedStyle(el);
        el.style.marginBottom = ((parseFloat(cs.marginBottom) || 0) + marginPx) + "px";
        moved++;
        break;
      }
    }
  }
  return moved;
})()`, jsString(offsets), windowPx, marginPx, jsString(selectors), jsString(hostID))
}

func releaseScript() string {
	return fmt.Sprintf(`(() => {
  const host = document.getElementById(%s);
  if (!host) { return false; }
  host.remove();
  return true;
})()`, jsString(hostID))
}
