package gstengine

/*
#cgo pkg-config: gstreamer-1.0
#include <stdlib.h>
#include <gst/gst.h>

static gboolean muxtag_is_tag_setter(gpointer obj) {
	return GST_IS_TAG_SETTER(obj);
}

static void muxtag_add_string_tag(gpointer obj, const gchar *tag, const gchar *value, GstTagMergeMode mode) {
	gst_tag_setter_add_tags(GST_TAG_SETTER(obj), mode, tag, value, NULL);
}

static gchar *muxtag_message_source_path(gpointer msg) {
	GstObject *src = GST_MESSAGE_SRC((GstMessage *) msg);
	if (src == NULL) {
		return NULL;
	}
	return gst_object_get_path_string(src);
}

static gpointer muxtag_request_pad(gpointer elem, gpointer templ) {
	return gst_element_request_pad(GST_ELEMENT(elem), GST_PAD_TEMPLATE(templ), NULL, NULL);
}

// Result codes of muxtag_set_property_text.
enum {
	MUXTAG_PROP_OK = 0,
	MUXTAG_PROP_UNKNOWN = 1,
	MUXTAG_PROP_READONLY = 2,
	MUXTAG_PROP_BAD_VALUE = 3,
};

// Deserializes text into the property's own type, as gst-launch does.
// String properties take text verbatim.
static int muxtag_set_property_text(gpointer obj, const gchar *key, const gchar *text) {
	GParamSpec *pspec = g_object_class_find_property(G_OBJECT_GET_CLASS(obj), key);
	if (pspec == NULL) {
		return MUXTAG_PROP_UNKNOWN;
	}
	if (!(pspec->flags & G_PARAM_WRITABLE)) {
		return MUXTAG_PROP_READONLY;
	}
	GValue v = G_VALUE_INIT;
	g_value_init(&v, pspec->value_type);
	if (pspec->value_type == G_TYPE_STRING) {
		g_value_set_string(&v, text);
	} else if (!gst_value_deserialize(&v, text)) {
		g_value_unset(&v);
		return MUXTAG_PROP_BAD_VALUE;
	}
	g_object_set_property(G_OBJECT(obj), key, &v);
	g_value_unset(&v);
	return MUXTAG_PROP_OK;
}

static void muxtag_post_failure(gpointer elem, const gchar *text, const gchar *debug) {
	GError *err = g_error_new_literal(GST_CORE_ERROR, GST_CORE_ERROR_FAILED, text);
	GstMessage *msg = gst_message_new_error(GST_OBJECT(elem), err, debug);
	g_error_free(err);
	gst_element_post_message(GST_ELEMENT(elem), msg);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/backmassage/muxtag/internal/engine"
)

func isTagSetter(obj unsafe.Pointer) bool {
	return C.muxtag_is_tag_setter(C.gpointer(obj)) != 0
}

func addStringTag(obj unsafe.Pointer, key, value string, mode engine.MergeMode) {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	cvalue := C.CString(value)
	defer C.free(unsafe.Pointer(cvalue))
	C.muxtag_add_string_tag(C.gpointer(obj), (*C.gchar)(ckey), (*C.gchar)(cvalue), mergeMode(mode))
}

// requestPad returns a new pad from templ, owned by the caller, or nil.
func requestPad(elem, templ unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(C.muxtag_request_pad(C.gpointer(elem), C.gpointer(templ)))
}

// setPropertyText assigns the textual form of a property value.
func setPropertyText(obj unsafe.Pointer, key, text string) error {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	switch int(C.muxtag_set_property_text(C.gpointer(obj), (*C.gchar)(ckey), (*C.gchar)(ctext))) {
	case int(C.MUXTAG_PROP_OK):
		return nil
	case int(C.MUXTAG_PROP_UNKNOWN):
		return fmt.Errorf("no property %q", key)
	case int(C.MUXTAG_PROP_READONLY):
		return fmt.Errorf("property %q is not writable", key)
	default:
		return fmt.Errorf("property %q: invalid value %q", key, text)
	}
}

func messageSourcePath(msg unsafe.Pointer) string {
	cpath := C.muxtag_message_source_path(C.gpointer(msg))
	if cpath == nil {
		return ""
	}
	defer C.g_free(C.gpointer(cpath))
	return C.GoString((*C.char)(cpath))
}

func postFailure(elem unsafe.Pointer, text, debug string) {
	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	cdebug := C.CString(debug)
	defer C.free(unsafe.Pointer(cdebug))
	C.muxtag_post_failure(C.gpointer(elem), (*C.gchar)(ctext), (*C.gchar)(cdebug))
}

func mergeMode(mode engine.MergeMode) C.GstTagMergeMode {
	switch mode {
	case engine.MergeReplaceAll:
		return C.GST_TAG_MERGE_REPLACE_ALL
	case engine.MergeAppend:
		return C.GST_TAG_MERGE_APPEND
	case engine.MergePrepend:
		return C.GST_TAG_MERGE_PREPEND
	case engine.MergeKeep:
		return C.GST_TAG_MERGE_KEEP
	case engine.MergeKeepAll:
		return C.GST_TAG_MERGE_KEEP_ALL
	}
	return C.GST_TAG_MERGE_REPLACE
}
