/*
Package probe wraps the ffprobe and ffmpeg binaries used to inspect video
containers and to render thumbnail stills.

Probe runs ffprobe once per file and decodes its JSON report into an Info
(duration, dimensions, codec, bitrate, frame rate, chapters, subtitle
streams and accessibility dispositions). Thumbnail grabs one or more frames
as PNG on ffmpeg's stdout, resizes them with imaging.Fit and writes JPEG
files into the configured afero.Fs.

Every failure is returned as an *Error that matches ErrProbeFailed with
errors.Is. A failed call never returns a partial Info, and a failed
multi-frame Thumbnail removes the frames it already wrote.
*/
package probe
