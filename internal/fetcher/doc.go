/*
Package fetcher drives yt-dlp to download remote videos into the library.

YTDLP runs one yt-dlp process per Fetch, reads its stdout and stderr line
by line and turns "[download]  42.0%" lines into transfer Progress. The
final file location and the remote title, duration and uploader are read
from a single JSON line printed after yt-dlp moves the file into place.

Some sources never report transfer progress. When no progress line has
been seen, a step simulation emits Progress values marked Simulated so
callers can tell estimated progress apart from real telemetry.
*/
package fetcher
